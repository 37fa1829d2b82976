// Package parallel runs a function over a list of items on a fixed pool of
// workers.  The list is cut into contiguous, disjoint slices; each worker
// processes its slice sequentially and posts exactly one message back, and
// the coordinator drains exactly one message per worker.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type config struct {
	workers int
	logger  logging.Logger
}

// Option configures Map.
type Option func(*config)

// WithWorkers sets the pool size.  n <= 0 selects runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger sets the logger used for worker diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// DefaultWorkers is the pool size used when none is configured.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ---------------------------------------------------------------------------
// Slicing
// ---------------------------------------------------------------------------

// Range is the half-open interval [Start, End) of one worker's slice.
type Range struct {
	Start, End int
}

// Len returns the number of items in r.
func (r Range) Len() int { return r.End - r.Start }

// Split cuts n items into at most workers contiguous ranges whose sizes
// differ by at most one.  Empty ranges are never produced.
func Split(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > n {
		workers = n
	}
	size, extra := n/workers, n%workers
	out := make([]Range, 0, workers)
	start := 0
	for w := 0; w < workers; w++ {
		end := start + size
		if w < extra {
			end++
		}
		out = append(out, Range{Start: start, End: end})
		start = end
	}
	return out
}

// ---------------------------------------------------------------------------
// Map
// ---------------------------------------------------------------------------

type sliceResult[R any] struct {
	slot    int
	results []R
}

// Map applies fn to every item and returns the results in input order.
//
// A worker that panics is logged and posts an empty slice result, so its
// items keep the zero value of R.  When ctx is done, workers stop taking new
// items from their slice; unprocessed items also keep the zero value.
func Map[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) R, opts ...Option) []R {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	logger := logging.OrNop(cfg.logger)

	out := make([]R, len(items))
	ranges := Split(len(items), cfg.workers)
	if len(ranges) == 0 {
		return out
	}

	start := time.Now()
	resultCh := make(chan sliceResult[R], len(ranges))
	for slot, rg := range ranges {
		go func(slot int, part []T) {
			res := sliceResult[R]{slot: slot}
			defer func() {
				if p := recover(); p != nil {
					logger.Error("worker panicked",
						logging.Int("worker", slot),
						logging.String("panic", fmt.Sprint(p)))
					res.results = nil
				}
				resultCh <- res
			}()

			results := make([]R, 0, len(part))
			for _, item := range part {
				if ctx.Err() != nil {
					break
				}
				results = append(results, fn(ctx, item))
			}
			res.results = results
		}(slot, items[rg.Start:rg.End])
	}

	for range ranges {
		res := <-resultCh
		copy(out[ranges[res.slot].Start:], res.results)
	}

	logger.Debug("parallel map finished",
		logging.Int("items", len(items)),
		logging.Int("workers", len(ranges)),
		logging.Duration("elapsed", time.Since(start)))
	return out
}
