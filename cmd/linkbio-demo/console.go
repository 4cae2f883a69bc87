package main

import (
	"fmt"
	"io"
	"sync"

	"linkbio-telemetry/backend/internal/notify"
)

// console renders bus events as lines of text. It only reads from the bus.
type console struct {
	mu  sync.Mutex
	out io.Writer
	bus *notify.Bus
}

func newConsole(out io.Writer, bus *notify.Bus) *console {
	return &console{out: out, bus: bus}
}

func (c *console) handle(ev notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := ev.Notification
	switch ev.Type {
	case notify.Added:
		fmt.Fprintf(c.out, "🏆 %s: %s (%d badge(s) total)\n", n.Badge.Name, describe(n), n.TotalBadges)
		if n.Badge.RewardType != "" {
			fmt.Fprintf(c.out, "   reward: %v %s\n", n.Badge.RewardValue, n.Badge.RewardType)
		}
	default:
		fmt.Fprintf(c.out, "   %s %s [%d on screen]\n", n.Badge.Name, ev.Type, c.bus.Len())
	}
}

func describe(n notify.Notification) string {
	if n.Badge.Description != "" {
		return n.Badge.Description
	}
	if n.Badge.CriteriaDescription != "" {
		return n.Badge.CriteriaDescription
	}
	return string(n.Badge.ID)
}
