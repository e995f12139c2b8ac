package utils

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const maxSpacePrefix = 32

// LogSpaceName derives a filesystem-safe log-space name from a node id.
// The readable prefix keeps only [A-Za-z0-9_-]; the xxhash suffix keeps
// distinct ids distinct after that sanitizing.
func LogSpaceName(nodeID string) string {
	var b strings.Builder
	for _, r := range nodeID {
		if b.Len() >= maxSpacePrefix {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		b.WriteString("node")
	}
	return fmt.Sprintf("%s-%016x", b.String(), xxhash.Sum64String(nodeID))
}
