package badge

import (
	"sync"
	"testing"
	"time"

	"linkbio-telemetry/backend/internal/notify"
	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// manualTimers records AfterFunc calls so tests fire them explicitly.
type manualTimers struct {
	mu     sync.Mutex
	delays []time.Duration
	funcs  []func()
}

func (m *manualTimers) AfterFunc(d time.Duration, f func()) *time.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
	m.funcs = append(m.funcs, f)
	return time.AfterFunc(time.Hour, func() {})
}

func (m *manualTimers) fireAll() {
	m.mu.Lock()
	funcs := m.funcs
	m.funcs = nil
	m.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

func resultWith(total int, ids ...string) *domain.BatchResult {
	badges := make([]domain.BadgeAward, len(ids))
	for i, id := range ids {
		badges[i] = domain.BadgeAward{ID: domain.BadgeID(id), Name: "Badge " + id}
	}
	return &domain.BatchResult{
		Success: true,
		Data:    &domain.ResultData{BadgeUpdates: &domain.BadgeUpdates{NewBadges: badges, TotalBadges: total}},
	}
}

func TestHandle_GateTrue_PublishesBadge(t *testing.T) {
	bus := notify.NewBus(notify.Options{})
	in := NewInterpreter(bus, notify.NewSwitch(true), DefaultStagger)

	res := &domain.BatchResult{
		Success: true,
		Data: &domain.ResultData{BadgeUpdates: &domain.BadgeUpdates{
			NewBadges:   []domain.BadgeAward{{ID: "b1", Name: "First Click"}},
			TotalBadges: 1,
		}},
	}
	if n := in.Handle(res); n != 1 {
		t.Fatalf("Handle = %d, want 1", n)
	}
	list := bus.List()
	if len(list) != 1 {
		t.Fatalf("store size = %d, want 1", len(list))
	}
	if list[0].Badge.ID != "b1" || list[0].TotalBadges != 1 {
		t.Errorf("notification = %+v", list[0])
	}
}

func TestHandle_GateFalse_DropsBadge(t *testing.T) {
	bus := notify.NewBus(notify.Options{})
	in := NewInterpreter(bus, notify.NewSwitch(false), DefaultStagger)

	if n := in.Handle(resultWith(1, "b1")); n != 0 {
		t.Errorf("Handle = %d, want 0", n)
	}
	if bus.Len() != 0 {
		t.Errorf("store size = %d, want 0", bus.Len())
	}
	if in.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", in.Pending())
	}
}

func TestHandle_NilGateAllows(t *testing.T) {
	bus := notify.NewBus(notify.Options{})
	in := NewInterpreter(bus, nil, 0)
	in.Handle(resultWith(1, "b1"))
	if bus.Len() != 1 {
		t.Errorf("store size = %d, want 1", bus.Len())
	}
}

func TestHandle_NoBadges(t *testing.T) {
	bus := notify.NewBus(notify.Options{})
	in := NewInterpreter(bus, nil, 0)
	testCases := []struct {
		name string
		res  *domain.BatchResult
	}{
		{"nil result", nil},
		{"no data", &domain.BatchResult{Success: true}},
		{"empty badges", resultWith(3)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if n := in.Handle(tc.res); n != 0 {
				t.Errorf("Handle = %d, want 0", n)
			}
		})
	}
	if bus.Len() != 0 {
		t.Errorf("store size = %d, want 0", bus.Len())
	}
}

func TestHandle_StaggersBadges(t *testing.T) {
	bus := notify.NewBus(notify.Options{})
	timers := &manualTimers{}
	in := NewInterpreter(bus, nil, 500*time.Millisecond)
	in.afterFunc = timers.AfterFunc

	if n := in.Handle(resultWith(3, "b1", "b2", "b3")); n != 3 {
		t.Fatalf("Handle = %d, want 3", n)
	}
	if bus.Len() != 1 {
		t.Fatalf("store size before timers = %d, want 1", bus.Len())
	}
	if len(timers.delays) != 2 || timers.delays[0] != 500*time.Millisecond || timers.delays[1] != time.Second {
		t.Errorf("delays = %v, want [500ms 1s]", timers.delays)
	}
	if in.Pending() != 2 {
		t.Errorf("Pending = %d, want 2", in.Pending())
	}

	timers.fireAll()
	list := bus.List()
	if len(list) != 3 {
		t.Fatalf("store size = %d, want 3", len(list))
	}
	seen := map[string]bool{}
	for _, n := range list {
		if seen[n.ID] {
			t.Errorf("duplicate notification id %q", n.ID)
		}
		seen[n.ID] = true
		if n.TotalBadges != 3 {
			t.Errorf("TotalBadges = %d, want 3", n.TotalBadges)
		}
	}
}

func TestStop_CancelsPending(t *testing.T) {
	bus := notify.NewBus(notify.Options{})
	timers := &manualTimers{}
	in := NewInterpreter(bus, nil, time.Second)
	in.afterFunc = timers.AfterFunc

	in.Handle(resultWith(2, "b1", "b2"))
	in.Stop()
	timers.fireAll()

	if bus.Len() != 1 {
		t.Errorf("store size = %d, want 1 (staggered badge cancelled)", bus.Len())
	}
	if n := in.Handle(resultWith(3, "b3")); n != 0 {
		t.Errorf("Handle after Stop = %d, want 0", n)
	}
}

func TestHandle_BusDisabled(t *testing.T) {
	bus := notify.NewBus(notify.Options{Disabled: true})
	in := NewInterpreter(bus, nil, 0)
	in.Handle(resultWith(1, "b1"))
	if bus.Len() != 0 {
		t.Errorf("store size = %d, want 0 when bus disabled", bus.Len())
	}
}

func TestNewInterpreter_NegativeStagger(t *testing.T) {
	in := NewInterpreter(notify.NewBus(notify.Options{}), nil, -1)
	if in.stagger != DefaultStagger {
		t.Errorf("stagger = %v, want %v", in.stagger, DefaultStagger)
	}
}

func TestHandle_SubscriberMayCallInterpreter(t *testing.T) {
	bus := notify.NewBus(notify.Options{})
	timers := &manualTimers{}
	in := NewInterpreter(bus, nil, time.Second)
	in.afterFunc = timers.AfterFunc

	pending := make(chan int, 1)
	bus.Subscribe(func(ev notify.Event) {
		if ev.Type == notify.Added {
			pending <- in.Pending()
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		in.Handle(resultWith(2, "b1", "b2"))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle deadlocked when a subscriber called Pending")
	}
	if n := <-pending; n != 1 {
		t.Errorf("Pending seen by subscriber = %d, want 1", n)
	}
	in.Stop()
}
