package dataType

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Kind is the "type" tag of a message body.
type Kind string

const (
	KindInit   Kind = "init"
	KindInitOk Kind = "init_ok"

	KindEcho       Kind = "echo"
	KindEchoOk     Kind = "echo_ok"
	KindGenerate   Kind = "generate"
	KindGenerateOk Kind = "generate_ok"

	KindBroadcast   Kind = "broadcast"
	KindBroadcastOk Kind = "broadcast_ok"
	KindRead        Kind = "read"
	KindReadOk      Kind = "read_ok"
	KindTopology    Kind = "topology"
	KindTopologyOk  Kind = "topology_ok"

	KindSend                   Kind = "send"
	KindSendOk                 Kind = "send_ok"
	KindPoll                   Kind = "poll"
	KindPollOk                 Kind = "poll_ok"
	KindCommitOffsets          Kind = "commit_offsets"
	KindCommitOffsetsOk        Kind = "commit_offsets_ok"
	KindListCommittedOffsets   Kind = "list_committed_offsets"
	KindListCommittedOffsetsOk Kind = "list_committed_offsets_ok"
)

// ErrPayload reports a missing or malformed kind-specific field.
var ErrPayload = errors.New("invalid payload")

var validate = validator.New()

type InitRequest struct {
	NodeID  string   `json:"node_id" validate:"required"`
	NodeIDs []string `json:"node_ids"`
}

type EchoRequest struct {
	Echo *string `json:"echo" validate:"required"`
}

type EchoOk struct {
	Echo string `json:"echo"`
}

type GenerateOk struct {
	ID string `json:"id"`
}
