package connector

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const syncWorkers = 8

// ForEachLimit runs fn over n items with bounded concurrency. The first
// failure cancels the outstanding work. Sync passes use it to validate
// fetched markets in parallel.
func ForEachLimit(ctx context.Context, n int, fn func(i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncWorkers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fn(i)
		})
	}
	return g.Wait()
}
