package server

import (
	"fmt"

	"dist_node/internal/dataType"
)

// Behavior is one node variant. Handle receives every message except init
// and returns the reply body, or nil when the message needs no reply.
// Outbound is the hook the loop calls after each handled line; the loop
// assigns message ids to what it returns, in order.
type Behavior interface {
	Handle(id *Identity, msg dataType.Message) (*dataType.Body, error)
	Outbound(id *Identity) []dataType.Message
}

// Initializer is implemented by behaviors that need the node id before
// serving, e.g. to open storage named after it.
type Initializer interface {
	OnInit(id *Identity) error
}

// NoOutbound is the default Outbound hook for behaviors that only reply.
type NoOutbound struct{}

func (NoOutbound) Outbound(*Identity) []dataType.Message { return nil }

// Unsupported is the error a behavior returns for a kind it does not own.
func Unsupported(msg dataType.Message) error {
	return fmt.Errorf("%w: unexpected message type %q from %s", ErrProtocol, msg.Body.Type, msg.Src)
}
