package handler

import (
	"dist_node/internal/dataType"
	"dist_node/internal/server"

	"github.com/google/uuid"
)

// UniqueID answers generate with an id unique across the cluster: the node
// id keeps ids from different nodes apart, the random UUID the ones of a
// single node.
type UniqueID struct {
	server.NoOutbound
	newID func() string
}

func NewUniqueID() *UniqueID {
	return &UniqueID{newID: uuid.NewString}
}

func (u *UniqueID) Handle(id *server.Identity, msg dataType.Message) (*dataType.Body, error) {
	if msg.Body.Type != dataType.KindGenerate {
		return nil, server.Unsupported(msg)
	}
	return dataType.NewBody(dataType.KindGenerateOk, dataType.GenerateOk{ID: id.NodeID() + "-" + u.newID()})
}
