package api

import (
	"strings"
	"testing"
)

func TestGeneratedIDs(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
		length int
	}{
		{"item", NewItemID, "item_", 5 + 24},
		{"call", NewCallID, "call_", 5 + 24},
		{"run", NewRunID, "run_", 4 + 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.gen(), tt.gen()
			if !strings.HasPrefix(a, tt.prefix) || len(a) != tt.length {
				t.Errorf("got %q, want %s prefix and length %d", a, tt.prefix, tt.length)
			}
			if a == b {
				t.Errorf("two calls returned %q", a)
			}
		})
	}
	if id := NewItemID(); !ValidateItemID(id) {
		t.Errorf("ValidateItemID(%q) = false", id)
	}
}

func TestValidateItemID(t *testing.T) {
	for id, want := range map[string]bool{
		"item_0123456789abcdef01234567": true,
		"item_ABCDEFGHIJKLMNOPQRSTUVWX": true,
		"call_0123456789abcdef01234567": false,
		"item_0123":                     false,
		"item_0123456789abcdef0123456!": false,
		"":                              false,
	} {
		if got := ValidateItemID(id); got != want {
			t.Errorf("ValidateItemID(%q) = %v, want %v", id, got, want)
		}
	}
}
