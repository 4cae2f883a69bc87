package notify

import "sync/atomic"

// Gate answers whether the host's current surface may show gamification notifications
// (e.g. the user is inside the authenticated dashboard).
type Gate interface {
	NotificationsAllowed() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

// NotificationsAllowed calls f.
func (f GateFunc) NotificationsAllowed() bool { return f() }

// Switch is a Gate the host flips on navigation. Safe for concurrent use.
type Switch struct {
	allowed atomic.Bool
}

// NewSwitch returns a Switch with the given initial state.
func NewSwitch(allowed bool) *Switch {
	s := &Switch{}
	s.allowed.Store(allowed)
	return s
}

// Set changes the gate state.
func (s *Switch) Set(allowed bool) { s.allowed.Store(allowed) }

// NotificationsAllowed reports the current state.
func (s *Switch) NotificationsAllowed() bool { return s.allowed.Load() }
