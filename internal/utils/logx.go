package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogxManager builds the node's diagnostic loggers. Stdout carries protocol
// envelopes, so every logger writes to the console sink (stderr) and, when a
// base path is set, to per-node info/error/debug files.
type LogxManager struct {
	basePath string
	level    zap.AtomicLevel
	console  zapcore.Core
	base     *zap.Logger
	loggers  map[string]*zap.Logger
	files    []*os.File
	mu       sync.RWMutex
}

func NewManager(base, level string, console io.Writer) (*LogxManager, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if console == nil {
		console = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), lvl)

	m := &LogxManager{
		basePath: base,
		level:    lvl,
		console:  core,
		base:     zap.New(core),
		loggers:  make(map[string]*zap.Logger),
	}

	if m.basePath != "" {
		if err := os.MkdirAll(m.basePath, 0744); err != nil {
			m.base.Warn("failed to create base log dir", zap.String("dir", m.basePath), zap.Error(err))
		}
	}
	return m, nil
}

// Base returns the logger used before the node id is known.
func (m *LogxManager) Base() *zap.Logger {
	return m.base
}

// For returns the logger of one node, creating its log files on first use.
func (m *LogxManager) For(nodeID string) *zap.Logger {
	m.mu.RLock()
	if lg, ok := m.loggers[nodeID]; ok {
		m.mu.RUnlock()
		return lg
	}
	m.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if lg, ok := m.loggers[nodeID]; ok {
		return lg
	}

	if m.basePath == "" {
		lg := m.base.With(zap.String("node", nodeID))
		m.loggers[nodeID] = lg
		return lg
	}

	dir := filepath.Join(m.basePath, nodeID)
	if err := os.MkdirAll(dir, 0744); err != nil {
		m.base.Warn("failed to create log dir", zap.String("dir", dir), zap.Error(err))
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:     "ts",
		LevelKey:    "level",
		MessageKey:  "msg",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		EncodeLevel: zapcore.CapitalLevelEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	infoOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "info.log")))
	errorOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "error.log")))
	dbgOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "debug.log")))

	infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel || l == zapcore.WarnLevel })
	errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	dbgLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel && m.level.Enabled(l) })

	tee := zapcore.NewTee(
		m.console,
		zapcore.NewCore(encoder, infoOut, infoLv),
		zapcore.NewCore(encoder, errorOut, errLv),
		zapcore.NewCore(encoder, dbgOut, dbgLv),
	)
	lg := zap.New(tee).With(zap.String("node", nodeID))
	m.loggers[nodeID] = lg
	return lg
}

// Close flushes every logger and closes the node log files.
func (m *LogxManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.base.Sync()
	for _, lg := range m.loggers {
		_ = lg.Sync()
	}
	for _, f := range m.files {
		_ = f.Close()
	}
	m.files = nil
}

func (m *LogxManager) openLogFile(path string) zapcore.WriteSyncer {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		m.base.Warn("failed to open log file", zap.String("path", path), zap.Error(err))
		return zapcore.AddSync(io.Discard)
	}
	m.files = append(m.files, f)
	return f
}
