// Package badge turns badge updates in ingestion responses into notifications, gated by
// the host's current UI context.
package badge

import (
	"log"
	"sync"
	"time"

	"linkbio-telemetry/backend/internal/notify"
	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// DefaultStagger is the delay between consecutive notifications from one response.
const DefaultStagger = 500 * time.Millisecond

// Publisher receives notifications. *notify.Bus implements it.
type Publisher interface {
	Publish(n notify.Notification) bool
	Now() time.Time
}

// Interpreter inspects batch results for new badges. The award itself is already recorded
// server-side; the interpreter only decides visibility, so gated-out badges are dropped.
type Interpreter struct {
	publisher Publisher
	gate      notify.Gate
	stagger   time.Duration
	afterFunc func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	stopped bool
}

// NewInterpreter returns an interpreter publishing to p. A nil gate allows every notification.
// stagger < 0 selects DefaultStagger; 0 publishes all badges at once.
func NewInterpreter(p Publisher, gate notify.Gate, stagger time.Duration) *Interpreter {
	if stagger < 0 {
		stagger = DefaultStagger
	}
	return &Interpreter{
		publisher: p,
		gate:      gate,
		stagger:   stagger,
		afterFunc: time.AfterFunc,
		pending:   make(map[*time.Timer]struct{}),
	}
}

// Handle schedules one notification per new badge in result and returns how many were scheduled.
// The first badge is published before Handle returns; badge i follows after i*stagger.
func (in *Interpreter) Handle(result *domain.BatchResult) int {
	badges := result.NewBadges()
	if len(badges) == 0 {
		return 0
	}
	if in.gate != nil && !in.gate.NotificationsAllowed() {
		log.Printf("badge: %d new badge(s) not shown outside notification context", len(badges))
		return 0
	}
	total := result.TotalBadges()
	type due struct {
		badge domain.BadgeAward
		index int
	}
	var immediate []due
	in.mu.Lock()
	if in.stopped {
		in.mu.Unlock()
		return 0
	}
	for i, b := range badges {
		i, b := i, b
		delay := time.Duration(i) * in.stagger
		if delay == 0 {
			immediate = append(immediate, due{badge: b, index: i})
			continue
		}
		var t *time.Timer
		t = in.afterFunc(delay, func() {
			in.mu.Lock()
			_, live := in.pending[t]
			delete(in.pending, t)
			in.mu.Unlock()
			if live {
				in.publish(b, total, i)
			}
		})
		in.pending[t] = struct{}{}
	}
	in.mu.Unlock()

	// Subscribers run synchronously inside publish and may call back into the interpreter.
	for _, n := range immediate {
		in.publish(n.badge, total, n.index)
	}
	return len(badges)
}

// Pending returns the number of staggered notifications not yet published.
func (in *Interpreter) Pending() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pending)
}

// Stop cancels staggered notifications that have not fired and ignores later results.
func (in *Interpreter) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopped = true
	for t := range in.pending {
		t.Stop()
		delete(in.pending, t)
	}
}

func (in *Interpreter) publish(b domain.BadgeAward, total, index int) {
	n := notify.NewNotification(b, total, index, in.publisher.Now())
	if !in.publisher.Publish(n) {
		log.Printf("badge: notification for badge %s not published", b.ID)
	}
}
