package tracker

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffConfig is a capped exponential delay applied to automatic retries after a failed send.
// Base <= 0 disables it: failed batches go out again on the next tick.
type BackoffConfig struct {
	Base time.Duration
	Max  time.Duration
}

// retryPolicy blocks timer and immediate flushes until the current backoff window elapses.
type retryPolicy struct {
	mu      sync.Mutex
	exp     *backoff.ExponentialBackOff
	nowF    func() time.Time
	retryAt time.Time
}

func newRetryPolicy(cfg BackoffConfig, nowF func() time.Time) *retryPolicy {
	p := &retryPolicy{nowF: nowF}
	if cfg.Base <= 0 {
		return p
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.Base
	exp.MaxInterval = cfg.Max
	if exp.MaxInterval < cfg.Base {
		exp.MaxInterval = cfg.Base
	}
	exp.Reset()
	p.exp = exp
	return p
}

func (p *retryPolicy) blocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.retryAt.IsZero() && p.nowF().Before(p.retryAt)
}

func (p *retryPolicy) failed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exp == nil {
		return
	}
	p.retryAt = p.nowF().Add(p.exp.NextBackOff())
}

func (p *retryPolicy) succeeded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retryAt = time.Time{}
	if p.exp != nil {
		p.exp.Reset()
	}
}

// retryAfter returns when automatic flushes resume, or the zero time when they are not blocked.
func (p *retryPolicy) retryAfter() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retryAt
}
