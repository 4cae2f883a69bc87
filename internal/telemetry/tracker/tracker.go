// Package tracker records telemetry events and flushes them to the ingestion endpoint in batches,
// on a periodic timer, immediately for high-priority events, or on demand.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"linkbio-telemetry/backend/internal/session"
	"linkbio-telemetry/backend/internal/telemetry/domain"
	"linkbio-telemetry/backend/internal/telemetry/queue"
	"linkbio-telemetry/backend/internal/telemetry/transport"
)

const (
	// DefaultFlushInterval is the period of automatic flushes.
	DefaultFlushInterval = 3 * time.Second
	// defaultSendTimeout bounds flushes the tracker starts on its own (timer and immediate triggers).
	defaultSendTimeout = 10 * time.Second
)

// ErrDestroyed is returned by TrackEvent after Destroy.
var ErrDestroyed = errors.New("telemetry: tracker destroyed")

// ResultHandler consumes successful batch results, e.g. the badge interpreter.
type ResultHandler interface {
	Handle(result *domain.BatchResult) int
}

// Observer is told about every batch send. Implementations must not block.
type Observer interface {
	FlushSucceeded(ctx context.Context, events int, elapsed time.Duration)
	FlushFailed(ctx context.Context, events int, elapsed time.Duration, err error)
}

// Enricher adds host-specific context (viewport, timezone, referrer, ...) to an event before it
// is queued. It runs on the caller's goroutine with the ctx passed to TrackEvent.
type Enricher func(ctx context.Context, e *domain.TelemetryEvent)

// Config holds the scheduler settings. Zero values select defaults.
type Config struct {
	// FlushInterval is the automatic flush period.
	FlushInterval time.Duration
	// MaxBatchSize caps the events per transport call; 0 sends the whole queue in one call.
	MaxBatchSize int
	// SendTimeout bounds flushes started by the timer or by immediate events.
	SendTimeout time.Duration
	// RetryBackoff delays automatic retries after a failed send. Zero disables it.
	RetryBackoff BackoffConfig
}

// Deps are the collaborators of a Tracker. Transport is required.
type Deps struct {
	Transport transport.Transport
	Results   ResultHandler
	Observer  Observer
	Enricher  Enricher
	// Session defaults to a fresh identity.
	Session *session.Identity
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Track describes one user action reported by the host.
type Track struct {
	Type         domain.EventType
	ProfileID    string
	LinkID       string
	DeviceInfo   domain.Metadata
	LocationInfo domain.Metadata
	ReferrerInfo domain.Metadata
	// Immediate requests a flush right after enqueueing. View events always flush immediately.
	Immediate bool
}

type trigger int

const (
	triggerTimer trigger = iota
	triggerImmediate
	triggerManual
)

func (t trigger) String() string {
	switch t {
	case triggerTimer:
		return "timer"
	case triggerImmediate:
		return "immediate"
	}
	return "manual"
}

// Tracker buffers events and ships them through a Transport. Safe for concurrent use.
// At most one batch is in flight at a time; events queued while a batch is in flight
// go out with the next flush.
type Tracker struct {
	cfg       Config
	transport transport.Transport
	results   ResultHandler
	observer  Observer
	enrich    Enricher
	session   *session.Identity
	nowF      func() time.Time
	queue     *queue.Queue
	retry     *retryPolicy

	// flushMu serializes flushes.
	flushMu sync.Mutex

	mu        sync.Mutex
	tickStop  chan struct{}
	destroyed bool

	inflight sync.WaitGroup
}

// New returns a stopped tracker. Call Start to enable periodic flushing.
func New(cfg Config, deps Deps) (*Tracker, error) {
	if deps.Transport == nil {
		return nil, errors.New("telemetry: transport is required")
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.MaxBatchSize < 0 {
		cfg.MaxBatchSize = 0
	}
	nowF := deps.Now
	if nowF == nil {
		nowF = time.Now
	}
	sess := deps.Session
	if sess == nil {
		sess = session.New(nowF())
	}
	return &Tracker{
		cfg:       cfg,
		transport: deps.Transport,
		results:   deps.Results,
		observer:  deps.Observer,
		enrich:    deps.Enricher,
		session:   sess,
		nowF:      nowF,
		queue:     queue.New(),
		retry:     newRetryPolicy(cfg.RetryBackoff, nowF),
	}, nil
}

// SessionID returns the id stamped on every event from this tracker.
func (t *Tracker) SessionID() string { return t.session.ID() }

// RetryAt returns when automatic flushes resume after a failure, or the zero time when
// they are not held back.
func (t *Tracker) RetryAt() time.Time { return t.retry.retryAfter() }

// Pending returns the number of queued events.
func (t *Tracker) Pending() int { return t.queue.Len() }

// PendingEvents returns a copy of the queued events in send order.
func (t *Tracker) PendingEvents() []domain.TelemetryEvent { return t.queue.Snapshot() }

// TrackEvent validates and queues one event. View events and events marked Immediate
// start a flush in the background; TrackEvent never waits on the network.
// Validation failures are returned and nothing is queued.
func (t *Tracker) TrackEvent(ctx context.Context, tr Track) error {
	t.mu.Lock()
	destroyed := t.destroyed
	t.mu.Unlock()
	if destroyed {
		return ErrDestroyed
	}
	event := domain.TelemetryEvent{
		EventType:    tr.Type,
		ProfileID:    tr.ProfileID,
		LinkID:       tr.LinkID,
		DeviceInfo:   copyMetadata(tr.DeviceInfo),
		LocationInfo: copyMetadata(tr.LocationInfo),
		ReferrerInfo: copyMetadata(tr.ReferrerInfo),
		SessionID:    t.session.ID(),
		Timestamp:    t.nowF().UnixMilli(),
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if t.enrich != nil {
		t.enrich(ctx, &event)
	}
	t.queue.Enqueue(event)

	if tr.Immediate || tr.Type == domain.EventView {
		t.flushAsync(triggerImmediate)
	}
	return nil
}

// ForceFlush sends everything queued now and returns the transport error, if any.
// ctx is passed to the transport as is; SendTimeout does not apply.
// It works whether or not the tracker is started and ignores the retry backoff window,
// so hosts can call it before Stop (e.g. on page unload).
func (t *Tracker) ForceFlush(ctx context.Context) error {
	return t.flush(ctx, triggerManual, 0)
}

// Start arms the periodic flush. Calling Start on a running or destroyed tracker is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed || t.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	t.tickStop = stop
	ticker := time.NewTicker(t.cfg.FlushInterval)
	go t.run(ticker, stop)
}

// Running reports whether the periodic flush is armed.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickStop != nil
}

// Stop cancels the periodic flush. It does not flush queued events and does not cancel or
// wait for a send already in flight; call ForceFlush first when delivery before teardown matters.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tickStop == nil {
		return
	}
	close(t.tickStop)
	t.tickStop = nil
}

// Destroy stops the tracker and rejects further events. Queued events are left in place
// and can still be sent with ForceFlush.
func (t *Tracker) Destroy() {
	t.Stop()
	t.mu.Lock()
	t.destroyed = true
	t.mu.Unlock()
}

// Wait blocks until background flushes started by immediate events have finished.
func (t *Tracker) Wait() {
	t.inflight.Wait()
}

func (t *Tracker) run(ticker *time.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			if t.queue.Len() == 0 {
				continue
			}
			if err := t.flush(context.Background(), triggerTimer, t.cfg.SendTimeout); err != nil {
				log.Printf("telemetry: periodic flush failed: %v", err)
			}
		}
	}
}

// flushAsync runs a flush in a goroutine with its own timeout so the caller is not blocked.
func (t *Tracker) flushAsync(trig trigger) {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		if err := t.flush(context.Background(), trig, t.cfg.SendTimeout); err != nil {
			log.Printf("telemetry: %s flush failed: %v", trig, err)
		}
	}()
}

// flush sends the queue and then hands successful results to the result handler.
// A positive timeout bounds the sends only; the clock starts once no other flush is in flight.
// Results are handled after the flush lock is released, so handlers and bus subscribers
// may call back into the tracker.
func (t *Tracker) flush(ctx context.Context, trig trigger, timeout time.Duration) error {
	results, err := t.send(ctx, trig, timeout)
	if t.results != nil {
		for _, r := range results {
			t.results.Handle(r)
		}
	}
	return err
}

func (t *Tracker) send(ctx context.Context, trig trigger, timeout time.Duration) ([]*domain.BatchResult, error) {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	if trig != triggerManual && t.retry.blocked() {
		return nil, nil
	}
	events := t.queue.Drain()
	if len(events) == 0 {
		return nil, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var results []*domain.BatchResult
	sent := 0
	for sent < len(events) {
		end := len(events)
		if t.cfg.MaxBatchSize > 0 && sent+t.cfg.MaxBatchSize < end {
			end = sent + t.cfg.MaxBatchSize
		}
		chunk := events[sent:end]
		start := t.nowF()
		result, err := t.transport.Send(ctx, domain.Batch{SessionID: t.session.ID(), Events: chunk})
		elapsed := t.nowF().Sub(start)
		if err != nil {
			unsent := events[sent:]
			t.queue.Prepend(unsent)
			t.retry.failed()
			if t.observer != nil {
				t.observer.FlushFailed(ctx, len(unsent), elapsed, err)
			}
			return results, fmt.Errorf("telemetry: send %d event(s), %d re-queued: %w", len(chunk), len(unsent), err)
		}
		t.retry.succeeded()
		if t.observer != nil {
			t.observer.FlushSucceeded(ctx, len(chunk), elapsed)
		}
		results = append(results, result)
		sent = end
	}
	return results, nil
}

func copyMetadata(m domain.Metadata) domain.Metadata {
	if len(m) == 0 {
		return nil
	}
	out := make(domain.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
