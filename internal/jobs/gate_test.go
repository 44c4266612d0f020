package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/providers"
)

func TestGate(t *testing.T) {
	t.Run("serializes by default", func(t *testing.T) {
		g := NewGate(0, nil)
		if g.Status().Concurrency != 1 {
			t.Fatalf("Concurrency = %d, want 1", g.Status().Concurrency)
		}

		var current, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				g.Do(context.Background(), func(ctx context.Context) error {
					n := current.Add(1)
					if n > peak.Load() {
						peak.Store(n)
					}
					time.Sleep(5 * time.Millisecond)
					current.Add(-1)
					return nil
				})
			}()
		}
		wg.Wait()
		if peak.Load() != 1 {
			t.Errorf("peak = %d, want 1", peak.Load())
		}
	})

	t.Run("returns fn error", func(t *testing.T) {
		g := NewGate(2, nil)
		boom := errors.New("boom")
		if err := g.Do(context.Background(), func(ctx context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Errorf("Do() error = %v", err)
		}
	})

	t.Run("cancellation releases waiters", func(t *testing.T) {
		g := NewGate(1, nil)
		release := make(chan struct{})
		started := make(chan struct{})
		go g.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		called := false
		err := g.Do(ctx, func(ctx context.Context) error {
			called = true
			return nil
		})
		close(release)

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Do() error = %v, want DeadlineExceeded", err)
		}
		if called {
			t.Error("fn ran despite cancelled wait")
		}
	})

	t.Run("rate limiter", func(t *testing.T) {
		g := NewGate(4, providers.NewRateLimiter(1))
		ctx := context.Background()
		if err := g.Do(ctx, func(ctx context.Context) error { return nil }); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		if err := g.Do(ctx, func(ctx context.Context) error { return nil }); err == nil {
			t.Error("expected limiter wait to be cut short by the deadline")
		}

		status := g.Status()
		if status.RateLimiter == nil || status.RateLimiter.TotalConsumed != 1 {
			t.Errorf("RateLimiter status = %+v", status.RateLimiter)
		}
	})

	t.Run("nil gate runs directly", func(t *testing.T) {
		var g *Gate
		ran := false
		if err := g.Do(context.Background(), func(ctx context.Context) error { ran = true; return nil }); err != nil || !ran {
			t.Errorf("Do() = %v, ran = %v", err, ran)
		}
	})
}
