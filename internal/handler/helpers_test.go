package handler

import (
	"encoding/json"
	"testing"

	"dist_node/internal/dataType"
	"dist_node/internal/server"

	"github.com/stretchr/testify/require"
)

func newIdentity(t *testing.T, nodeID string) *server.Identity {
	t.Helper()
	id := &server.Identity{}
	require.NoError(t, id.Init(nodeID, nil))
	return id
}

// request parses a wire body so tests exercise the real payload decoding.
func request(t *testing.T, src, body string) dataType.Message {
	t.Helper()
	var b dataType.Body
	require.NoError(t, json.Unmarshal([]byte(body), &b))
	return dataType.Message{Src: src, Dest: "n1", Body: b}
}

func decodeReply(t *testing.T, body *dataType.Body, v any) {
	t.Helper()
	require.NotNil(t, body)
	data, err := json.Marshal(body.Payload)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
