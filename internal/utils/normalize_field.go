package utils

import (
	"strings"
)

// NormalizeField trims operator-entered text and collapses inner runs of
// whitespace into a single space.
func NormalizeField(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
