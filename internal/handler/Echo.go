package handler

import (
	"dist_node/internal/dataType"
	"dist_node/internal/server"
)

// Echo replies with the payload it received.
type Echo struct {
	server.NoOutbound
}

func NewEcho() *Echo {
	return &Echo{}
}

func (e *Echo) Handle(_ *server.Identity, msg dataType.Message) (*dataType.Body, error) {
	if msg.Body.Type != dataType.KindEcho {
		return nil, server.Unsupported(msg)
	}
	var req dataType.EchoRequest
	if err := msg.Body.Decode(&req); err != nil {
		return nil, err
	}
	return dataType.NewBody(dataType.KindEchoOk, dataType.EchoOk{Echo: *req.Echo})
}
