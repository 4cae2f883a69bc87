package session

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNew_Format(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	s := New(now)
	prefix := fmt.Sprintf("session_%d_", now.UnixMilli())
	if !strings.HasPrefix(s.ID(), prefix) {
		t.Fatalf("ID = %q, want prefix %q", s.ID(), prefix)
	}
	if got := len(strings.TrimPrefix(s.ID(), prefix)); got != suffixLen {
		t.Errorf("suffix length = %d, want %d", got, suffixLen)
	}
	if !s.StartedAt().Equal(now) {
		t.Errorf("StartedAt = %v, want %v", s.StartedAt(), now)
	}
}

func TestIdentity_StableID(t *testing.T) {
	s := New(time.Now())
	if s.ID() != s.ID() {
		t.Error("ID should be stable across calls")
	}
}

func TestNew_UniqueAcrossInstances(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New(now).ID()
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}
