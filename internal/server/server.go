package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"dist_node/internal/dataType"

	"go.uber.org/zap"
)

const defaultMaxLineBytes = 1 << 20

// Server is the dispatch loop of one node process. It owns the identity and
// the behavior; nothing else touches them while Serve runs.
type Server struct {
	in       io.Reader
	out      *bufio.Writer
	identity *Identity
	behavior Behavior
	logger   *zap.Logger
	loggerFn func(nodeID string) *zap.Logger
	maxLine  int
}

type Option func(*Server)

// WithMaxLineBytes bounds the size of one inbound envelope.
func WithMaxLineBytes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLine = n
		}
	}
}

// WithNodeLogger switches the loop to a per-node logger once init names the node.
func WithNodeLogger(fn func(nodeID string) *zap.Logger) Option {
	return func(s *Server) {
		s.loggerFn = fn
	}
}

func New(in io.Reader, out io.Writer, behavior Behavior, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		in:       in,
		out:      bufio.NewWriter(out),
		identity: &Identity{},
		behavior: behavior,
		logger:   logger,
		maxLine:  defaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity exposes the node identity, mainly for tests and diagnostics.
func (s *Server) Identity() *Identity {
	return s.identity
}

type inputLine struct {
	data []byte
	err  error
}

// Serve runs the loop until the input ends, ctx is cancelled, or a fatal
// error occurs. End of input and cancellation both return nil.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan inputLine)
	go s.readLines(ctx, lines)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dispatch loop stopped", zap.Error(context.Cause(ctx)))
			return nil
		case line, ok := <-lines:
			if !ok {
				s.logger.Info("input closed")
				return nil
			}
			if line.err != nil {
				return line.err
			}
			if err := s.step(line.data); err != nil {
				return err
			}
		}
	}
}

// Close runs the behavior's shutdown step, if it has one.
func (s *Server) Close() error {
	if closer, ok := s.behavior.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Server) readLines(ctx context.Context, lines chan<- inputLine) {
	defer close(lines)

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, min(64*1024, s.maxLine)), s.maxLine)
	for scanner.Scan() {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		line := inputLine{data: append([]byte(nil), data...)}
		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = fmt.Errorf("%w: envelope exceeds %d bytes", ErrProtocol, s.maxLine)
		} else {
			err = fmt.Errorf("read input: %w", err)
		}
		select {
		case lines <- inputLine{err: err}:
		case <-ctx.Done():
		}
	}
}

// step handles one inbound line: dispatch, reply, then the outbound hook.
func (s *Server) step(line []byte) error {
	var msg dataType.Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return fmt.Errorf("%w: malformed envelope: %v", ErrProtocol, err)
	}
	s.logger.Debug("recv",
		zap.String("src", msg.Src),
		zap.String("type", string(msg.Body.Type)),
		zap.Uint64("msg_id", msg.Body.MsgID))

	reply, err := s.dispatch(msg)
	if err != nil {
		return err
	}

	if reply != nil {
		inReplyTo := msg.Body.MsgID
		reply.MsgID = s.identity.NextMsgID()
		reply.InReplyTo = &inReplyTo
		if err := s.write(dataType.Message{Src: s.identity.NodeID(), Dest: msg.Src, Body: *reply}); err != nil {
			return err
		}
	}

	for _, out := range s.behavior.Outbound(s.identity) {
		out.Body.MsgID = s.identity.NextMsgID()
		if err := s.write(out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) dispatch(msg dataType.Message) (*dataType.Body, error) {
	if msg.Body.Type == dataType.KindInit {
		return s.handleInit(msg)
	}
	if !s.identity.Initialized() {
		return nil, fmt.Errorf("%w: %q received before init", ErrProtocol, msg.Body.Type)
	}
	return s.behavior.Handle(s.identity, msg)
}

func (s *Server) handleInit(msg dataType.Message) (*dataType.Body, error) {
	if s.identity.Initialized() {
		return nil, fmt.Errorf("%w: second init from %s", ErrProtocol, msg.Src)
	}

	var req dataType.InitRequest
	if err := msg.Body.Decode(&req); err != nil {
		return nil, err
	}
	if err := s.identity.Init(req.NodeID, req.NodeIDs); err != nil {
		return nil, err
	}
	if s.loggerFn != nil {
		s.logger = s.loggerFn(req.NodeID)
	}

	if initializer, ok := s.behavior.(Initializer); ok {
		if err := initializer.OnInit(s.identity); err != nil {
			return nil, err
		}
	}

	s.logger.Info("node initialized", zap.String("node_id", req.NodeID), zap.Int("cluster_size", len(req.NodeIDs)))
	return dataType.NewBody(dataType.KindInitOk, nil)
}

// write emits one envelope as one line and flushes it immediately.
func (s *Server) write(msg dataType.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", msg.Body.Type, err)
	}
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	s.logger.Debug("sent",
		zap.String("dest", msg.Dest),
		zap.String("type", string(msg.Body.Type)),
		zap.Uint64("msg_id", msg.Body.MsgID))
	return nil
}
