package server

import "fmt"

// Identity holds the node id assigned by the init handshake and the
// outbound message-id counter shared by replies and spontaneous sends.
type Identity struct {
	nodeID      string
	nodeIDs     []string
	nextMsgID   uint64
	initialized bool
}

// Init records the node id and resets the counter. It may succeed only once.
func (id *Identity) Init(nodeID string, nodeIDs []string) error {
	if id.initialized {
		return fmt.Errorf("%w: node already initialized as %s", ErrProtocol, id.nodeID)
	}
	id.nodeID = nodeID
	id.nodeIDs = append([]string(nil), nodeIDs...)
	id.nextMsgID = 0
	id.initialized = true
	return nil
}

func (id *Identity) Initialized() bool {
	return id.initialized
}

func (id *Identity) NodeID() string {
	return id.nodeID
}

// NodeIDs returns every node of the cluster as announced by init.
func (id *Identity) NodeIDs() []string {
	return append([]string(nil), id.nodeIDs...)
}

// NextMsgID returns the current counter value and advances it by one.
func (id *Identity) NextMsgID() uint64 {
	v := id.nextMsgID
	id.nextMsgID++
	return v
}
