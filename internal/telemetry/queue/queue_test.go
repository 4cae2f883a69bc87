package queue

import (
	"fmt"
	"sync"
	"testing"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

func event(n int) domain.TelemetryEvent {
	return domain.TelemetryEvent{EventType: domain.EventClick, ProfileID: "p1", LinkID: fmt.Sprintf("l%d", n)}
}

func linkIDs(events []domain.TelemetryEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.LinkID
	}
	return out
}

func assertOrder(t *testing.T, got []domain.TelemetryEvent, want ...string) {
	t.Helper()
	ids := linkIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("events = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("events = %v, want %v", ids, want)
		}
	}
}

func TestQueue_DrainPreservesOrder(t *testing.T) {
	q := New()
	for i := 1; i <= 5; i++ {
		q.Enqueue(event(i))
	}
	assertOrder(t, q.Drain(), "l1", "l2", "l3", "l4", "l5")
	if q.Len() != 0 {
		t.Errorf("Len after Drain = %d, want 0", q.Len())
	}
}

func TestQueue_DrainEmpty(t *testing.T) {
	q := New()
	if got := q.Drain(); got != nil {
		t.Errorf("Drain on empty queue = %v, want nil", got)
	}
}

func TestQueue_PrependRetriesBeforeNewer(t *testing.T) {
	q := New()
	q.Enqueue(event(1))
	q.Enqueue(event(2))
	failed := q.Drain()

	q.Enqueue(event(3))
	q.Prepend(failed)

	assertOrder(t, q.Drain(), "l1", "l2", "l3")
}

func TestQueue_PrependEmptyIsNoop(t *testing.T) {
	q := New()
	q.Enqueue(event(1))
	q.Prepend(nil)
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
}

func TestQueue_DrainedSliceIsDetached(t *testing.T) {
	q := New()
	q.Enqueue(event(1))
	drained := q.Drain()
	q.Enqueue(event(2))
	if drained[0].LinkID != "l1" || len(drained) != 1 {
		t.Errorf("drained batch changed after enqueue: %v", linkIDs(drained))
	}
}

func TestQueue_Snapshot(t *testing.T) {
	q := New()
	q.Enqueue(event(1))
	snap := q.Snapshot()
	snap[0].LinkID = "mutated"
	assertOrder(t, q.Snapshot(), "l1")
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Enqueue(event(n))
		}(i)
	}
	wg.Wait()
	if q.Len() != 50 {
		t.Errorf("Len = %d, want 50", q.Len())
	}
}
