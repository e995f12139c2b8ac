package server_test

import (
	"bytes"
	"os"
	"sync"
)

// syncBuffer is a bytes.Buffer safe to read while the loop writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0644)
}
