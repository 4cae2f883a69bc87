// Package notify is the in-process publish/subscribe bus and time-bounded store for badge
// notifications. Producers publish; presentation code subscribes and reads snapshots.
package notify

import (
	"fmt"
	"time"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// Notification is a presentation record derived from one badge award.
type Notification struct {
	ID          string            `json:"id"`
	Badge       domain.BadgeAward `json:"badge"`
	TotalBadges int               `json:"totalBadges"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewNotification builds a notification for badge. index is the badge's position within its
// response; it keeps ids unique when several badges from one response share a timestamp.
func NewNotification(badge domain.BadgeAward, totalBadges, index int, now time.Time) Notification {
	return Notification{
		ID:          fmt.Sprintf("%s-%d-%d", badge.ID, now.UnixMilli(), index),
		Badge:       badge,
		TotalBadges: totalBadges,
		Timestamp:   now,
	}
}

// EventType says what happened to a notification.
type EventType int

const (
	// Added is sent when a notification is published.
	Added EventType = iota
	// Removed is sent on explicit dismissal.
	Removed
	// Expired is sent when the sweep drops a notification past its TTL.
	Expired
	// Cleared is sent for each notification dropped by Clear.
	Cleared
)

func (t EventType) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Expired:
		return "expired"
	case Cleared:
		return "cleared"
	}
	return "unknown"
}

// Event is delivered to subscribers. Notification is a copy; mutating it does not affect the store.
type Event struct {
	Type         EventType
	Notification Notification
}
