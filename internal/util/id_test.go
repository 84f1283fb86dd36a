package util

import (
	"strings"
	"testing"
)

func TestNewIDPrefix(t *testing.T) {
	id := NewID("grp")
	if !strings.HasPrefix(id, "grp_") {
		t.Fatalf("expected grp_ prefix, got %q", id)
	}
	if len(id) != len("grp_")+32 {
		t.Fatalf("expected 32 hex chars after prefix, got %q", id)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for range 1000 {
		id := NewID("")
		if strings.Contains(id, "_") {
			t.Fatalf("expected no separator without prefix, got %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
