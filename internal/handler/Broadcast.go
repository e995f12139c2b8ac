package handler

import (
	"encoding/json"
	"strconv"

	"dist_node/internal/dataType"
	"dist_node/internal/server"

	"go.uber.org/zap"
)

// Broadcast floods every value it learns to its topology neighbors.
//
// Delivery is best effort: a forward is sent once per neighbor and never
// acknowledged, retried or checked against what the neighbor already got
// through another path. Acks coming back from neighbors are dropped.
type Broadcast struct {
	logger   *zap.Logger
	messages []uint64
	seen     map[uint64]struct{}
	topology map[string][]string
	// sent counts, per neighbor, the prefix of messages already forwarded.
	sent     map[string]int
}

func NewBroadcast(logger *zap.Logger) *Broadcast {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcast{
		logger:   logger,
		seen:     make(map[uint64]struct{}),
		topology: make(map[string][]string),
		sent:     make(map[string]int),
	}
}

func (b *Broadcast) Handle(id *server.Identity, msg dataType.Message) (*dataType.Body, error) {
	switch msg.Body.Type {
	case dataType.KindBroadcast:
		var req dataType.BroadcastRequest
		if err := msg.Body.Decode(&req); err != nil {
			return nil, err
		}
		b.record(*req.Message)
		return dataType.NewBody(dataType.KindBroadcastOk, nil)

	case dataType.KindBroadcastOk:
		// ack of one of our forwards
		return nil, nil

	case dataType.KindRead:
		return dataType.NewBody(dataType.KindReadOk, dataType.ReadOk{Messages: b.Messages()})

	case dataType.KindTopology:
		var req dataType.TopologyRequest
		if err := msg.Body.Decode(&req); err != nil {
			return nil, err
		}
		b.topology = req.Topology
		b.logger.Info("topology replaced",
			zap.String("node_id", id.NodeID()),
			zap.Strings("neighbors", b.topology[id.NodeID()]))
		return dataType.NewBody(dataType.KindTopologyOk, nil)

	default:
		return nil, server.Unsupported(msg)
	}
}

// Outbound emits, for every neighbor of this node, one broadcast per value
// the neighbor has not been sent yet, then marks those values as sent.
func (b *Broadcast) Outbound(id *server.Identity) []dataType.Message {
	self := id.NodeID()
	neighbors := b.topology[self]
	if len(neighbors) == 0 {
		return nil
	}

	total := len(b.messages)
	var out []dataType.Message
	for _, neighbor := range neighbors {
		if neighbor == self {
			continue
		}
		sent := b.sent[neighbor]
		for i := sent; i < total; i++ {
			out = append(out, forward(self, neighbor, b.messages[i]))
		}
		b.sent[neighbor] = total
	}
	return out
}

// Messages returns the local log in arrival order.
func (b *Broadcast) Messages() []uint64 {
	return append(make([]uint64, 0, len(b.messages)), b.messages...)
}

// record appends value unless it is already known. Values are unique per
// client broadcast, so a repeat is a forward looping back through the topology.
func (b *Broadcast) record(value uint64) {
	if _, ok := b.seen[value]; ok {
		return
	}
	b.seen[value] = struct{}{}
	b.messages = append(b.messages, value)
}

func forward(src, dest string, value uint64) dataType.Message {
	return dataType.Message{
		Src:  src,
		Dest: dest,
		Body: dataType.Body{
			Type:    dataType.KindBroadcast,
			Payload: map[string]json.RawMessage{"message": json.RawMessage(strconv.FormatUint(value, 10))},
		},
	}
}
