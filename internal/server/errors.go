package server

import (
	"errors"

	"dist_node/internal/dataType"
	"dist_node/internal/storage"
)

// Error categories. Every one of them is fatal: the loop returns the error
// and the process exits with the code chosen by ExitCode.
var (
	ErrProtocol = errors.New("protocol violation")
	ErrPayload  = dataType.ErrPayload
	ErrStorage  = storage.ErrStorage
)

const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitProtocol = 2
	ExitPayload  = 3
	ExitStorage  = 4
)

// ExitCode maps the error that stopped the node to its process exit code.
// A nil error is normal termination (end of input or orderly stop).
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrProtocol):
		return ExitProtocol
	case errors.Is(err, ErrPayload):
		return ExitPayload
	case errors.Is(err, ErrStorage):
		return ExitStorage
	default:
		return ExitFailure
	}
}

// Category names the error class for logging.
func Category(err error) string {
	switch ExitCode(err) {
	case ExitOK:
		return "none"
	case ExitProtocol:
		return "protocol"
	case ExitPayload:
		return "payload"
	case ExitStorage:
		return "storage"
	default:
		return "internal"
	}
}
