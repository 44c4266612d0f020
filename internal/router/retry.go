package router

import (
	"context"
	"time"

	"github.com/jackzampolin/folio/internal/jobs"
	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/validate"
)

// gatedRetrier sends constrained retries through the inference gate under
// the tier timeout, like every other model call.
type gatedRetrier struct {
	inner   validate.Retrier
	gate    *jobs.Gate
	timeout time.Duration
}

func (g *gatedRetrier) Retry(ctx context.Context, entry outline.TOCEntry, lo, hi int) (page int, ok bool, err error) {
	err = g.gate.Do(ctx, func(ctx context.Context) error {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		var rerr error
		page, ok, rerr = g.inner.Retry(ctx, entry, lo, hi)
		return rerr
	})
	if err != nil {
		return 0, false, err
	}
	return page, ok, nil
}
