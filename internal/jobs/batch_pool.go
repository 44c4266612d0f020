package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Item is one unit of batch work, usually a single document.
type Item struct {
	ID  string
	Run func(ctx context.Context) error
}

// ItemResult is the outcome of one item.
type ItemResult struct {
	ID       string
	Err      error
	Duration time.Duration
}

// BatchPool runs items on a fixed set of workers.
// All workers share a single queue, so load balances itself.
type BatchPool struct {
	name        string
	logger      *slog.Logger
	workerCount int

	inFlight  atomic.Int32
	queued    atomic.Int32
	completed atomic.Int64
	failed    atomic.Int64
}

// BatchPoolConfig configures a new batch pool.
type BatchPoolConfig struct {
	Name        string
	Logger      *slog.Logger
	WorkerCount int // default: DefaultWorkerCount()
}

// BatchStatus reports a pool's current state.
type BatchStatus struct {
	Name       string `json:"name"`
	Workers    int    `json:"workers"`
	InFlight   int    `json:"in_flight"`
	QueueDepth int    `json:"queue_depth"`
	Completed  int64  `json:"completed"`
	Failed     int64  `json:"failed"`
}

// DefaultWorkerCount leaves two cores for the inference backends.
func DefaultWorkerCount() int {
	return max(1, runtime.NumCPU()-2)
}

// NewBatchPool creates a new batch pool.
func NewBatchPool(cfg BatchPoolConfig) *BatchPool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = "batch"
	}

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount()
	}

	return &BatchPool{
		name:        name,
		logger:      logger.With("pool", name, "workers", workerCount),
		workerCount: workerCount,
	}
}

// Name returns the pool name.
func (p *BatchPool) Name() string {
	return p.name
}

// Run processes every item and blocks until all have finished. Results are
// returned in item order. Items not started before ctx is cancelled report
// the context error.
func (p *BatchPool) Run(ctx context.Context, items []Item) []ItemResult {
	results := make([]ItemResult, len(items))
	if len(items) == 0 {
		return results
	}

	queue := make(chan int)
	p.queued.Add(int32(len(items)))

	var wg sync.WaitGroup
	workers := min(p.workerCount, len(items))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id, items, queue, results)
		}(i)
	}

feed:
	for i := range items {
		select {
		case queue <- i:
		case <-ctx.Done():
			for j := i; j < len(items); j++ {
				results[j] = ItemResult{ID: items[j].ID, Err: ctx.Err()}
			}
			p.queued.Add(-int32(len(items) - i))
			break feed
		}
	}
	close(queue)
	wg.Wait()

	p.logger.Info("batch finished", "items", len(items), "completed", p.completed.Load(), "failed", p.failed.Load())
	return results
}

// worker processes items from the shared queue.
func (p *BatchPool) worker(ctx context.Context, id int, items []Item, queue <-chan int, results []ItemResult) {
	p.logger.Debug("batch worker started", "worker_id", id)
	for idx := range queue {
		p.queued.Add(-1)
		item := items[idx]

		p.inFlight.Add(1)
		start := time.Now()
		err := p.process(ctx, item)
		p.inFlight.Add(-1)

		results[idx] = ItemResult{ID: item.ID, Err: err, Duration: time.Since(start)}
		if err != nil {
			p.failed.Add(1)
			p.logger.Debug("batch item failed", "worker_id", id, "item", item.ID, "error", err)
			continue
		}
		p.completed.Add(1)
		p.logger.Debug("batch item completed", "worker_id", id, "item", item.ID)
	}
}

// process runs one item, turning a panic into an error so one bad
// document cannot take down the batch.
func (p *BatchPool) process(ctx context.Context, item Item) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item.Run == nil {
		return fmt.Errorf("item %s has no work function", item.ID)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item %s panicked: %v", item.ID, r)
		}
	}()
	return item.Run(ctx)
}

// Status returns current pool status.
func (p *BatchPool) Status() BatchStatus {
	return BatchStatus{
		Name:       p.name,
		Workers:    p.workerCount,
		InFlight:   int(p.inFlight.Load()),
		QueueDepth: int(p.queued.Load()),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
	}
}
