// Package queue provides the ordered buffer of telemetry events awaiting transmission.
package queue

import (
	"sync"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// Queue is an insertion-ordered FIFO of pending events. Safe for concurrent use;
// each operation is atomic with respect to the others.
type Queue struct {
	mu     sync.Mutex
	events []domain.TelemetryEvent
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends e to the tail.
func (q *Queue) Enqueue(e domain.TelemetryEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// Drain returns the current contents in order and empties the queue.
// Returns nil when the queue is empty.
func (q *Queue) Drain() []domain.TelemetryEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Prepend restores events to the head of the queue, keeping their relative order,
// so they are sent before anything enqueued after them.
func (q *Queue) Prepend(events []domain.TelemetryEvent) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]domain.TelemetryEvent, 0, len(events)+len(q.events))
	merged = append(merged, events...)
	merged = append(merged, q.events...)
	q.events = merged
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Snapshot returns a copy of the pending events without removing them.
func (q *Queue) Snapshot() []domain.TelemetryEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.TelemetryEvent, len(q.events))
	copy(out, q.events)
	return out
}
