package telemetry

import (
	"context"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// EventEmitter fans out received telemetry events (e.g. to Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, events ...domain.TelemetryEvent) error
}
