package ingest

import (
	"sync"
	"time"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// Received is one accepted batch as seen by the endpoint.
type Received struct {
	ID         string
	ReceivedAt time.Time
	Batch      domain.Batch
}

// Recorder keeps every accepted batch and replays the script against the running event count.
type Recorder struct {
	mu      sync.Mutex
	script  *Script
	next    int
	events  int
	total   int
	batches []Received
}

// NewRecorder returns a Recorder for script; nil means no badges are ever awarded.
func NewRecorder(script *Script) *Recorder {
	if script == nil {
		script = &Script{}
	}
	return &Recorder{script: script}
}

// Record stores r and returns the badges awarded by the steps it triggers,
// along with the running badge total.
func (r *Recorder) Record(rec Received) ([]domain.BadgeAward, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, rec)
	r.events += len(rec.Batch.Events)

	var awarded []domain.BadgeAward
	for r.next < len(r.script.Steps) && r.script.Steps[r.next].AfterEvents <= r.events {
		for _, b := range r.script.Steps[r.next].Badges {
			awarded = append(awarded, b.Award())
		}
		r.next++
	}
	r.total += len(awarded)
	return awarded, r.total
}

// Batches returns a copy of the accepted batches in arrival order.
func (r *Recorder) Batches() []Received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Received(nil), r.batches...)
}

// Events returns the number of events received so far.
func (r *Recorder) Events() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}
