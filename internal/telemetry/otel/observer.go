package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "linkbio.telemetry"

// recordEmitter is the part of otellog.Logger the observer uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// FlushObserver records batch sends as OTel metrics and logs failed sends as OTel log records.
// It satisfies tracker.Observer.
type FlushObserver struct {
	sent     metric.Int64Counter
	requeued metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
	logger   recordEmitter
	nowF     func() time.Time
}

// NewFlushObserver creates the pipeline instruments on mp and a logger on lp.
// lp may be nil; failures are then only counted.
func NewFlushObserver(mp metric.MeterProvider, lp otellog.LoggerProvider) (*FlushObserver, error) {
	var logger recordEmitter
	if lp != nil {
		logger = lp.Logger(instrumentationName)
	}
	return newFlushObserver(mp.Meter(instrumentationName), logger)
}

func newFlushObserver(meter metric.Meter, logger recordEmitter) (*FlushObserver, error) {
	sent, err := meter.Int64Counter("linkbio.telemetry.events.sent",
		metric.WithDescription("Telemetry events accepted by the ingestion endpoint."),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	requeued, err := meter.Int64Counter("linkbio.telemetry.events.requeued",
		metric.WithDescription("Telemetry events put back on the queue after a failed send."),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("linkbio.telemetry.flush.failures",
		metric.WithDescription("Batch sends that failed."),
		metric.WithUnit("{flush}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("linkbio.telemetry.flush.duration",
		metric.WithDescription("Time spent in one batch send."),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &FlushObserver{
		sent:     sent,
		requeued: requeued,
		failures: failures,
		duration: duration,
		logger:   logger,
		nowF:     time.Now,
	}, nil
}

// FlushSucceeded counts events delivered in one send.
func (o *FlushObserver) FlushSucceeded(ctx context.Context, events int, elapsed time.Duration) {
	o.sent.Add(ctx, int64(events))
	o.duration.Record(ctx, float64(elapsed.Microseconds())/1000)
}

// FlushFailed counts the failure and the re-queued events, and emits a warning log record.
func (o *FlushObserver) FlushFailed(ctx context.Context, events int, elapsed time.Duration, err error) {
	o.failures.Add(ctx, 1)
	o.requeued.Add(ctx, int64(events))
	o.duration.Record(ctx, float64(elapsed.Microseconds())/1000)
	if o.logger == nil {
		return
	}
	rec := otellog.Record{}
	rec.SetTimestamp(o.nowF().UTC())
	rec.SetSeverity(otellog.SeverityWarn)
	rec.SetSeverityText("WARN")
	if err != nil {
		rec.SetBody(otellog.StringValue(err.Error()))
	}
	rec.AddAttributes(
		otellog.String("event_name", "telemetry.flush_failed"),
		otellog.Int("requeued_events", events),
		otellog.Int64("elapsed_ms", elapsed.Milliseconds()),
	)
	o.logger.Emit(ctx, rec)
}
