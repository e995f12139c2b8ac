package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrStorage wraps every failure to open, read, write or parse the log-space files.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidKey is returned by Append for keys that cannot be framed as a record.
	ErrInvalidKey = errors.New("invalid log key")
)

const (
	logSuffix  = ".log"
	metaSuffix = ".meta"

	maxRecordBytes = 1 << 20
)

// Entry is one record of the log file.
type Entry struct {
	Offset uint64
	Key    string
	Value  uint64
}

// Options tunes Open.
type Options struct {
	// RebuildOffsets raises every key's offset to the highest offset found
	// in the record file, recovering progress lost when the snapshot was
	// not written (crash without orderly shutdown).
	RebuildOffsets bool
	Logger         *zap.Logger
}

// Store is a single log-space. It is not safe for concurrent use and no two
// stores may open the same log-space at once.
type Store struct {
	dir     string
	space   string
	offsets map[string]uint64
	log     *os.File
	logger  *zap.Logger
	closed  bool
}

// Open loads the offset snapshot of the log-space (if any) and opens the
// record file for appending, creating both the directory and the file when
// missing.
func Open(dir, space string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create log dir %s: %v", ErrStorage, dir, err)
	}

	s := &Store{
		dir:    dir,
		space:  space,
		logger: logger.With(zap.String("log_space", space)),
	}

	offsets, err := loadSnapshot(s.metaPath())
	if err != nil {
		return nil, err
	}
	s.offsets = offsets

	f, err := os.OpenFile(s.logPath(), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open log file %s: %v", ErrStorage, s.logPath(), err)
	}
	s.log = f

	if opts.RebuildOffsets {
		if err := s.rebuildOffsets(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	s.logger.Info("log store opened", zap.Int("keys", len(s.offsets)))
	return s, nil
}

// Name returns the log-space name.
func (s *Store) Name() string {
	return s.space
}

// Offsets returns a copy of the last assigned offset per key.
func (s *Store) Offsets() map[string]uint64 {
	out := make(map[string]uint64, len(s.offsets))
	for k, v := range s.offsets {
		out[k] = v
	}
	return out
}

// Append writes value as the next record of key and returns its offset.
// The first record of a key gets offset 0.
func (s *Store) Append(key string, value uint64) (uint64, error) {
	if s.closed {
		return 0, fmt.Errorf("%w: append to closed log space %s", ErrStorage, s.space)
	}
	if key == "" || strings.ContainsAny(key, "\r\n") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	var offset uint64
	if last, ok := s.offsets[key]; ok {
		offset = last + 1
	}

	record := strconv.AppendUint(nil, offset, 10)
	record = append(record, ':')
	record = append(record, key...)
	record = append(record, ':')
	record = strconv.AppendUint(record, value, 10)
	record = append(record, '\n')

	if _, err := s.log.Write(record); err != nil {
		return 0, fmt.Errorf("%w: append to %s: %v", ErrStorage, s.logPath(), err)
	}
	s.offsets[key] = offset
	return offset, nil
}

// ReadFrom scans the whole record file and returns, for every requested key,
// the [offset, value] pairs whose offset is at least the requested start.
// Keys with no matching record are absent from the result.
func (s *Store) ReadFrom(starts map[string]uint64) (map[string][][2]uint64, error) {
	out := make(map[string][][2]uint64, len(starts))
	if len(starts) == 0 {
		return out, nil
	}

	err := s.scan(func(e Entry) {
		start, ok := starts[e.Key]
		if !ok || e.Offset < start {
			return
		}
		out[e.Key] = append(out[e.Key], [2]uint64{e.Offset, e.Value})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close writes the offset snapshot and releases the record file. It is the
// only point at which offsets become durable. Calling Close twice is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	snapErr := writeSnapshot(s.metaPath(), s.offsets)
	var closeErr error
	if err := s.log.Close(); err != nil {
		closeErr = fmt.Errorf("%w: close log file %s: %v", ErrStorage, s.logPath(), err)
	}
	if snapErr == nil {
		s.logger.Info("offset snapshot written", zap.Int("keys", len(s.offsets)))
	}
	return errors.Join(snapErr, closeErr)
}

func (s *Store) logPath() string {
	return filepath.Join(s.dir, s.space+logSuffix)
}

func (s *Store) metaPath() string {
	return filepath.Join(s.dir, s.space+metaSuffix)
}

// scan opens the record file read-only and calls fn for every record in file order.
func (s *Store) scan(fn func(Entry)) error {
	f, err := os.Open(s.logPath())
	if err != nil {
		return fmt.Errorf("%w: open log file %s: %v", ErrStorage, s.logPath(), err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close log reader", zap.Error(err))
		}
	}(f)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		e, err := parseRecord(text)
		if err != nil {
			return fmt.Errorf("%w: %s line %d: %v", ErrStorage, s.logPath(), line, err)
		}
		fn(e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read log file %s: %v", ErrStorage, s.logPath(), err)
	}
	return nil
}

func (s *Store) rebuildOffsets() error {
	raised := 0
	err := s.scan(func(e Entry) {
		if last, ok := s.offsets[e.Key]; !ok || e.Offset > last {
			s.offsets[e.Key] = e.Offset
			raised++
		}
	})
	if err != nil {
		return err
	}
	if raised > 0 {
		s.logger.Warn("offsets rebuilt from log; snapshot was stale", zap.Int("raised", raised))
	}
	return nil
}

// parseRecord splits "<offset>:<key>:<value>". The key may itself contain ':'.
func parseRecord(line string) (Entry, error) {
	first := strings.IndexByte(line, ':')
	last := strings.LastIndexByte(line, ':')
	if first < 0 || first == last {
		return Entry{}, fmt.Errorf("malformed record %q", line)
	}

	offset, err := strconv.ParseUint(line[:first], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("record offset %q: %v", line, err)
	}
	value, err := strconv.ParseUint(line[last+1:], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("record value %q: %v", line, err)
	}
	return Entry{Offset: offset, Key: line[first+1 : last], Value: value}, nil
}

func loadSnapshot(path string) (map[string]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]uint64), nil
		}
		return nil, fmt.Errorf("%w: read snapshot %s: %v", ErrStorage, path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return make(map[string]uint64), nil
	}

	offsets := make(map[string]uint64)
	if err := json.Unmarshal(data, &offsets); err != nil {
		return nil, fmt.Errorf("%w: parse snapshot %s: %v", ErrStorage, path, err)
	}
	if offsets == nil {
		offsets = make(map[string]uint64)
	}
	return offsets, nil
}

func writeSnapshot(path string, offsets map[string]uint64) error {
	data, err := json.Marshal(offsets)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ErrStorage, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: write snapshot %s: %v", ErrStorage, path, err)
	}
	return nil
}
