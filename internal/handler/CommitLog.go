package handler

import (
	"errors"
	"fmt"

	"dist_node/internal/dataType"
	"dist_node/internal/server"
	"dist_node/internal/storage"
	"dist_node/internal/utils"

	"go.uber.org/zap"
)

// CommitLog serves send/poll over a log store named after the node, plus
// an in-memory table of client commit offsets.
//
// commit_offsets is last-write-wins, not a maximum: committing 500 after
// 1000 leaves 500. Committed offsets are not persisted.
type CommitLog struct {
	server.NoOutbound
	dataPath  string
	rebuild   bool
	logger    *zap.Logger
	store     *storage.Store
	committed map[string]uint64
}

func NewCommitLog(dataPath string, rebuildOffsets bool, logger *zap.Logger) *CommitLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommitLog{
		dataPath:  dataPath,
		rebuild:   rebuildOffsets,
		logger:    logger,
		committed: make(map[string]uint64),
	}
}

// OnInit opens the log-space of the node.
func (c *CommitLog) OnInit(id *server.Identity) error {
	store, err := storage.Open(c.dataPath, utils.LogSpaceName(id.NodeID()), storage.Options{
		RebuildOffsets: c.rebuild,
		Logger:         c.logger,
	})
	if err != nil {
		return err
	}
	c.store = store
	return nil
}

// Close persists the offset snapshot. It runs on every exit path of the process.
func (c *CommitLog) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *CommitLog) Handle(_ *server.Identity, msg dataType.Message) (*dataType.Body, error) {
	switch msg.Body.Type {
	case dataType.KindSend:
		var req dataType.SendRequest
		if err := msg.Body.Decode(&req); err != nil {
			return nil, err
		}
		offset, err := c.store.Append(req.Key, *req.Msg)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidKey) {
				return nil, fmt.Errorf("%w: send: %v", dataType.ErrPayload, err)
			}
			return nil, err
		}
		return dataType.NewBody(dataType.KindSendOk, dataType.SendOk{Offset: offset})

	case dataType.KindPoll:
		var req dataType.PollRequest
		if err := msg.Body.Decode(&req); err != nil {
			return nil, err
		}
		msgs, err := c.store.ReadFrom(req.Offsets)
		if err != nil {
			return nil, err
		}
		return dataType.NewBody(dataType.KindPollOk, dataType.PollOk{Msgs: msgs})

	case dataType.KindCommitOffsets:
		var req dataType.CommitOffsetsRequest
		if err := msg.Body.Decode(&req); err != nil {
			return nil, err
		}
		c.Commit(req.Offsets)
		return dataType.NewBody(dataType.KindCommitOffsetsOk, nil)

	case dataType.KindListCommittedOffsets:
		var req dataType.ListCommittedOffsetsRequest
		if err := msg.Body.Decode(&req); err != nil {
			return nil, err
		}
		return dataType.NewBody(dataType.KindListCommittedOffsetsOk, dataType.ListCommittedOffsetsOk{Offsets: c.Committed(req.Keys)})

	default:
		return nil, server.Unsupported(msg)
	}
}

// Commit overwrites the committed offset of every key in offsets.
func (c *CommitLog) Commit(offsets map[string]uint64) {
	for key, offset := range offsets {
		if prev, ok := c.committed[key]; ok && offset < prev {
			c.logger.Debug("committed offset moved backwards",
				zap.String("key", key), zap.Uint64("from", prev), zap.Uint64("to", offset))
		}
		c.committed[key] = offset
	}
}

// Committed returns the committed offsets of keys; keys never committed are absent.
func (c *CommitLog) Committed(keys []string) map[string]uint64 {
	out := make(map[string]uint64, len(keys))
	for _, key := range keys {
		if offset, ok := c.committed[key]; ok {
			out[key] = offset
		}
	}
	return out
}
