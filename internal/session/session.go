// Package session allocates the opaque identifier shared by every event a client instance records.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// suffixLen is the number of random hex characters appended to the timestamp.
const suffixLen = 9

// Identity holds one session id for the lifetime of a client instance. Not persisted;
// a new Identity means a new session.
type Identity struct {
	id        string
	startedAt time.Time
}

// New allocates a session identity at the given time.
func New(now time.Time) *Identity {
	return &Identity{id: newID(now), startedAt: now}
}

// ID returns the session identifier. Stable for the Identity's lifetime.
func (s *Identity) ID() string {
	return s.id
}

// StartedAt returns when the session was allocated.
func (s *Identity) StartedAt() time.Time {
	return s.startedAt
}

func newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:suffixLen]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
