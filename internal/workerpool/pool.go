// Package workerpool provides a small bounded-concurrency helper used by
// batch jobs and the stage dispatcher.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs fn for every item with at most workers goroutines in flight.
// The first error cancels the remaining work and is returned.
func ForEach[T any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) error) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		item := item
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fn(ctx, item)
		})
	}
	return g.Wait()
}

// Map runs fn for every item with bounded concurrency and collects results
// in input order. Unlike ForEach, individual errors do not cancel the batch;
// each slot reports its own outcome.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]R, len(items))
	errs := make([]error, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i], errs[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}
