package shared

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerLimit resolves a configured worker count, 0 meaning one per CPU
func WorkerLimit(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.GOMAXPROCS(0)
}

// ForEach runs fn for every index in [0, n) on at most workers goroutines. The first
// error cancels the shared context and is returned once all started calls finish.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(WorkerLimit(workers))

	for i := 0; i < n; i++ {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
