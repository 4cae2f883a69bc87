// Package domain holds the wire and in-memory types of the telemetry pipeline.
package domain

import (
	"errors"
	"strings"
)

// EventType is the kind of an observed user action. Any non-empty value other than
// the predefined ones is treated as a custom event name.
type EventType string

const (
	EventView  EventType = "view"
	EventClick EventType = "click"
	EventShare EventType = "share"
)

// IsCustom reports whether t is a host-defined event name.
func (t EventType) IsCustom() bool {
	switch t {
	case EventView, EventClick, EventShare:
		return false
	}
	return t != ""
}

var (
	// ErrMissingEventType is returned when an event has no type.
	ErrMissingEventType = errors.New("telemetry: event type is required")
	// ErrMissingProfileID is returned when an event has no profile id.
	ErrMissingProfileID = errors.New("telemetry: profile id is required")
)

// Metadata is open-ended contextual information (viewport, timezone, UTM parameters, ...).
type Metadata map[string]any

// TelemetryEvent is one observed user action on a profile or link.
type TelemetryEvent struct {
	EventType    EventType `json:"eventType"`
	ProfileID    string    `json:"profileId"`
	LinkID       string    `json:"linkId,omitempty"`
	DeviceInfo   Metadata  `json:"deviceInfo,omitempty"`
	LocationInfo Metadata  `json:"locationInfo,omitempty"`
	ReferrerInfo Metadata  `json:"referrerInfo,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	// Timestamp is the creation time in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// Validate checks the fields every event must carry.
func (e TelemetryEvent) Validate() error {
	if strings.TrimSpace(string(e.EventType)) == "" {
		return ErrMissingEventType
	}
	if strings.TrimSpace(e.ProfileID) == "" {
		return ErrMissingProfileID
	}
	return nil
}

// Batch is the unit shipped to the ingestion endpoint in one call.
type Batch struct {
	SessionID string           `json:"sessionId"`
	Events    []TelemetryEvent `json:"events"`
}
