package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ID prefixes. Item and call IDs carry 24 hex characters after the prefix.
const (
	itemIDPrefix = "item_"
	callIDPrefix = "call_"
	runIDPrefix  = "run_"

	shortIDLen = 24
)

var itemIDPattern = regexp.MustCompile(`^item_[a-zA-Z0-9]{24}$`)

// NewItemID returns a fresh conversation item ID ("item_" + 24 chars).
func NewItemID() string { return itemIDPrefix + shortID() }

// NewCallID returns a tool call ID for calls that arrive without one;
// some OpenAI-compatible backends omit it.
func NewCallID() string { return callIDPrefix + shortID() }

// NewRunID identifies one agent run in logs.
func NewRunID() string { return runIDPrefix + uuid.NewString() }

// ValidateItemID reports whether id looks like an item ID.
func ValidateItemID(id string) bool { return itemIDPattern.MatchString(id) }

// shortID is the first 24 hex digits of a random UUID. The version nibble
// sits at position 12, leaving 92 random bits.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:shortIDLen]
}
