package dataType

type BroadcastRequest struct {
	Message *uint64 `json:"message" validate:"required"`
}

type ReadOk struct {
	Messages []uint64 `json:"messages"`
}

// TopologyRequest maps every node id to its ordered neighbor list.
type TopologyRequest struct {
	Topology map[string][]string `json:"topology" validate:"required"`
}
