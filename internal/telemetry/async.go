// Package telemetry holds the fire-and-forget fan-out used by the ingestion side.
package telemetry

import (
	"context"
	"log"
	"time"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops before closing the producer,
// so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not blocked.
// Use from request handlers for best-effort fan-out; errors are logged.
//
// emitter may be nil and events may be empty; EmitAsync then returns without starting a goroutine.
// The goroutine uses context.Background() with emitTimeout so request cancellation does not abort in-flight emit.
// The events slice is copied before the handler returns.
func EmitAsync(emitter EventEmitter, ctx context.Context, events ...domain.TelemetryEvent) {
	if emitter == nil || len(events) == 0 {
		return
	}
	batch := append([]domain.TelemetryEvent(nil), events...)
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, batch...); err != nil {
			log.Printf("telemetry: async emit of %d event(s) failed: %v", len(batch), err)
		}
	}()
}
