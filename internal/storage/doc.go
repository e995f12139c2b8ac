// Package storage provides the append-only, offset-indexed log store that
// backs the commit-log node. Every key of one log-space shares a single
// record file; per-key offsets live in memory and are written to a JSON
// snapshot only when the store is closed.
package storage
