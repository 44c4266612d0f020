package providers

import (
	"context"
	"sync"
	"time"
)

const defaultRPS = 10

// RateLimiter spaces requests at a fixed rate, letting up to one second's
// worth through back to back. It tracks the earliest time the next request
// may start (next) instead of counting tokens.
type RateLimiter struct {
	mu sync.Mutex

	rps      float64
	interval time.Duration
	slack    time.Duration // how far next may run ahead of now
	next     time.Time

	consumed int64
	waited   time.Duration
	last429  time.Time
}

// RateLimiterStatus is a snapshot of a RateLimiter.
type RateLimiterStatus struct {
	RPS             float64       `json:"rps"`
	TokensAvailable int           `json:"tokens_available"`
	Utilization     float64       `json:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter returns a limiter for rps requests per second. Non-positive
// rates fall back to 10.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = defaultRPS
	}
	interval := time.Duration(float64(time.Second) / rps)
	burst := max(1, int(rps))
	return &RateLimiter{
		rps:      rps,
		interval: interval,
		slack:    time.Duration(burst-1) * interval,
		next:     time.Now(),
	}
}

// Wait blocks until the caller may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for {
		delay, ok := r.reserve(time.Now())
		if ok {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.waited += delay
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a slot if one is free right now.
func (r *RateLimiter) TryConsume() bool {
	_, ok := r.reserve(time.Now())
	return ok
}

// reserve claims a slot at now, or reports how long until one opens.
func (r *RateLimiter) reserve(now time.Time) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wait := r.next.Sub(now) - r.slack; wait > 0 {
		return wait, false
	}
	if r.next.Before(now) {
		r.next = now
	}
	r.next = r.next.Add(r.interval)
	r.consumed++
	return 0, true
}

// Record429 pushes the next slot out by retryAfter, or by one interval when
// the backend gave no hint.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429 = now
	r.next = now.Add(r.slack + max(retryAfter, r.interval))
}

// Status returns a snapshot. TokensAvailable is the number of requests that
// could start immediately.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	capacity := int(r.slack/r.interval) + 1
	ahead := max(0, r.next.Sub(now))
	free := max(0, capacity-int((ahead+r.interval-1)/r.interval))

	var until time.Duration
	if free == 0 {
		until = ahead - r.slack
	}
	return RateLimiterStatus{
		RPS:             r.rps,
		TokensAvailable: free,
		Utilization:     1 - float64(free)/float64(capacity),
		TimeUntilToken:  until,
		TotalConsumed:   r.consumed,
		TotalWaited:     r.waited,
		Last429Time:     r.last429,
	}
}
