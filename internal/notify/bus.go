package notify

import (
	"log"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a notification stays in the store without being dismissed.
	DefaultTTL = 30 * time.Second
	// DefaultSweepInterval is how often expired notifications are removed.
	DefaultSweepInterval = 5 * time.Second
)

// Options configures a Bus. Zero values select the defaults.
type Options struct {
	TTL           time.Duration
	SweepInterval time.Duration
	// Disabled starts the bus with publication suppressed.
	Disabled bool
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Bus is a publish/subscribe primitive plus the store of active notifications.
// Safe for concurrent use. Subscribers are called synchronously, outside the store lock,
// in subscription order.
type Bus struct {
	mu      sync.Mutex
	items   []Notification
	subs    map[int]func(Event)
	nextSub int
	enabled bool

	ttl           time.Duration
	sweepInterval time.Duration
	nowF          func() time.Time

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewBus returns a bus with an empty store. Call StartSweeper to enable TTL expiry in the background.
func NewBus(opts Options) *Bus {
	b := &Bus{
		subs:          make(map[int]func(Event)),
		enabled:       !opts.Disabled,
		ttl:           opts.TTL,
		sweepInterval: opts.SweepInterval,
		nowF:          opts.Now,
	}
	if b.ttl <= 0 {
		b.ttl = DefaultTTL
	}
	if b.sweepInterval <= 0 {
		b.sweepInterval = DefaultSweepInterval
	}
	if b.nowF == nil {
		b.nowF = time.Now
	}
	return b
}

// Now returns the bus clock reading. Producers use it to stamp notifications.
func (b *Bus) Now() time.Time { return b.nowF() }

// SetEnabled turns publication on or off. Existing notifications are kept.
func (b *Bus) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	b.mu.Unlock()
}

// Enabled reports whether Publish accepts notifications.
func (b *Bus) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Publish stores n and notifies subscribers. Returns false without side effects when the bus
// is disabled, or when a notification with the same id or the same badge is already active.
func (b *Bus) Publish(n Notification) bool {
	b.mu.Lock()
	if !b.enabled {
		b.mu.Unlock()
		return false
	}
	for _, existing := range b.items {
		if existing.ID == n.ID || (n.Badge.ID != "" && existing.Badge.ID == n.Badge.ID) {
			b.mu.Unlock()
			return false
		}
	}
	b.items = append(b.items, n)
	subs := b.subscribersLocked()
	b.mu.Unlock()

	deliver(subs, Event{Type: Added, Notification: n})
	return true
}

// Subscribe registers fn for every subsequent event. The returned function unsubscribes;
// calling it more than once is safe.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Remove dismisses the notification with the given id. Returns false if it is not active.
func (b *Bus) Remove(id string) bool {
	b.mu.Lock()
	idx := -1
	for i, n := range b.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return false
	}
	removed := b.items[idx]
	b.items = append(b.items[:idx:idx], b.items[idx+1:]...)
	subs := b.subscribersLocked()
	b.mu.Unlock()

	deliver(subs, Event{Type: Removed, Notification: removed})
	return true
}

// Clear empties the store.
func (b *Bus) Clear() {
	b.mu.Lock()
	dropped := b.items
	b.items = nil
	subs := b.subscribersLocked()
	b.mu.Unlock()

	for _, n := range dropped {
		deliver(subs, Event{Type: Cleared, Notification: n})
	}
}

// List returns a copy of the active notifications, oldest first.
func (b *Bus) List() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of active notifications.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Sweep removes notifications older than the TTL and returns how many were dropped.
// A notification exactly TTL old is kept.
func (b *Bus) Sweep() int {
	now := b.nowF()
	b.mu.Lock()
	var kept, expired []Notification
	for _, n := range b.items {
		if now.Sub(n.Timestamp) > b.ttl {
			expired = append(expired, n)
		} else {
			kept = append(kept, n)
		}
	}
	if len(expired) == 0 {
		b.mu.Unlock()
		return 0
	}
	b.items = kept
	subs := b.subscribersLocked()
	b.mu.Unlock()

	for _, n := range expired {
		deliver(subs, Event{Type: Expired, Notification: n})
	}
	return len(expired)
}

// StartSweeper runs Sweep every sweep interval until StopSweeper. Calling it while running is a no-op.
func (b *Bus) StartSweeper() {
	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()
	if b.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	b.sweepStop, b.sweepDone = stop, done
	ticker := time.NewTicker(b.sweepInterval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.Sweep()
			}
		}
	}()
}

// StopSweeper stops the background sweep and waits for it to exit.
func (b *Bus) StopSweeper() {
	b.sweepMu.Lock()
	stop, done := b.sweepStop, b.sweepDone
	b.sweepStop, b.sweepDone = nil, nil
	b.sweepMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (b *Bus) subscribersLocked() []func(Event) {
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), len(ids))
	for i, id := range ids {
		out[i] = b.subs[id]
	}
	return out
}

// deliver calls each subscriber; a panicking subscriber is logged and does not stop the others.
func deliver(subs []func(Event), ev Event) {
	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("notify: subscriber panicked on %s event: %v", ev.Type, r)
				}
			}()
			fn(ev)
		}()
	}
}
