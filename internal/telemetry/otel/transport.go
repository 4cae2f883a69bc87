package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"linkbio-telemetry/backend/internal/telemetry/domain"
	"linkbio-telemetry/backend/internal/telemetry/transport"
)

// TracedTransport wraps next so every batch send is recorded as a client span.
func TracedTransport(tp trace.TracerProvider, next transport.Transport) transport.Transport {
	tracer := tp.Tracer(instrumentationName)
	return transport.Func(func(ctx context.Context, batch domain.Batch) (*domain.BatchResult, error) {
		ctx, span := tracer.Start(ctx, "telemetry.send_batch",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("linkbio.session_id", batch.SessionID),
				attribute.Int("linkbio.batch.events", len(batch.Events)),
			))
		defer span.End()

		res, err := next.Send(ctx, batch)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(attribute.Int("linkbio.badges.new", len(res.NewBadges())))
		return res, nil
	})
}
