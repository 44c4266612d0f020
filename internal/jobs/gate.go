package jobs

import (
	"context"
	"sync/atomic"

	"github.com/jackzampolin/folio/internal/providers"
)

// Gate caps concurrent access to an inference backend. Callers past the
// concurrency limit wait in line; an optional rate limiter spaces out the
// calls that get through.
type Gate struct {
	sem     chan struct{}
	limiter *providers.RateLimiter

	active  atomic.Int32
	waiting atomic.Int32
}

// GateStatus reports gate occupancy.
type GateStatus struct {
	Concurrency int                          `json:"concurrency"`
	Active      int                          `json:"active"`
	Waiting     int                          `json:"waiting"`
	RateLimiter *providers.RateLimiterStatus `json:"rate_limiter,omitempty"`
}

// NewGate creates a gate admitting concurrency callers at once (minimum 1).
// limiter may be nil.
func NewGate(concurrency int, limiter *providers.RateLimiter) *Gate {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Gate{
		sem:     make(chan struct{}, concurrency),
		limiter: limiter,
	}
}

// Do runs fn once a slot (and a rate limiter token) is available.
// A nil gate runs fn directly.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}

	g.waiting.Add(1)
	select {
	case g.sem <- struct{}{}:
		g.waiting.Add(-1)
	case <-ctx.Done():
		g.waiting.Add(-1)
		return ctx.Err()
	}
	defer func() { <-g.sem }()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	g.active.Add(1)
	defer g.active.Add(-1)
	return fn(ctx)
}

// Status returns current gate status.
func (g *Gate) Status() GateStatus {
	s := GateStatus{
		Concurrency: cap(g.sem),
		Active:      int(g.active.Load()),
		Waiting:     int(g.waiting.Load()),
	}
	if g.limiter != nil {
		rl := g.limiter.Status()
		s.RateLimiter = &rl
	}
	return s
}
