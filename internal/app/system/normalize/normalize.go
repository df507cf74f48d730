// Package normalize holds the canonical forms of user-entered identifiers.
// Stores and handlers normalize through these helpers so lookups and unique
// indexes always see the same shape.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Username trims surrounding whitespace. Case is preserved for display.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// UsernameKey is the folded form used for case-insensitive lookup and uniqueness.
func UsernameKey(s string) string {
	return text.Fold(Username(s))
}

// Email trims and lowercases.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// InviteCode trims and uppercases.
func InviteCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Role trims and lowercases.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a raw query string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
