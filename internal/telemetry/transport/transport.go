// Package transport ships telemetry batches to the ingestion endpoint.
package transport

import (
	"context"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// Transport sends one batch in a single call. It does no batching of its own.
// Any non-success outcome is returned as an error so the caller can re-queue the batch.
type Transport interface {
	Send(ctx context.Context, batch domain.Batch) (*domain.BatchResult, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, batch domain.Batch) (*domain.BatchResult, error)

// Send calls f.
func (f Func) Send(ctx context.Context, batch domain.Batch) (*domain.BatchResult, error) {
	return f(ctx, batch)
}
