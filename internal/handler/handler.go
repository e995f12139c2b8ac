// Package handler holds the node behaviors served by the dispatch loop:
// echo, unique-id generation, topology-aware gossip broadcast, and the
// commit-log service.
package handler

import (
	"fmt"

	"dist_node/internal/config"
	"dist_node/internal/server"

	"go.uber.org/zap"
)

// Kind selects one node behavior.
type Kind int

const (
	KindEcho Kind = iota
	KindUniqueID
	KindBroadcast
	KindCommitLog
)

func (k Kind) String() string {
	switch k {
	case KindEcho:
		return config.BehaviorEcho
	case KindUniqueID:
		return config.BehaviorUniqueID
	case KindBroadcast:
		return config.BehaviorBroadcast
	case KindCommitLog:
		return config.BehaviorKafka
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a config behavior name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case config.BehaviorEcho:
		return KindEcho, nil
	case config.BehaviorUniqueID:
		return KindUniqueID, nil
	case config.BehaviorBroadcast:
		return KindBroadcast, nil
	case config.BehaviorKafka:
		return KindCommitLog, nil
	default:
		return 0, fmt.Errorf("unknown behavior %q", name)
	}
}

type Options struct {
	DataPath       string
	RebuildOffsets bool
}

// New builds the behavior for kind.
func New(kind Kind, opts Options, logger *zap.Logger) (server.Behavior, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.Stringer("behavior", kind))

	switch kind {
	case KindEcho:
		return NewEcho(), nil
	case KindUniqueID:
		return NewUniqueID(), nil
	case KindBroadcast:
		return NewBroadcast(logger), nil
	case KindCommitLog:
		return NewCommitLog(opts.DataPath, opts.RebuildOffsets, logger), nil
	default:
		return nil, fmt.Errorf("unknown behavior %s", kind)
	}
}
