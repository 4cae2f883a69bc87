// Package producer defines the interface for fanning out received telemetry events (e.g. to Kafka).
package producer

import (
	"context"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// Producer emits telemetry events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends the events of one ingested batch. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, events ...domain.TelemetryEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
