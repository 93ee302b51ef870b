// Package parallel provides the chunked worker loops used by the
// data-parallel per-point stages.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// NumWorkers resolves a worker-count option: values above zero are taken
// as-is, anything else means one worker per logical CPU.
func NumWorkers(n int) int {
	if n > 0 {
		return n
	}

	return runtime.GOMAXPROCS(0)
}

// ForEach invokes fn for every index in [0, n), distributing contiguous
// index ranges over the given number of workers. fn must only write state
// owned by its own index, so that results do not depend on the worker
// count. The first error cancels the remaining work; a canceled context
// surfaces as its context error.
func ForEach(ctx context.Context, n, workers int, fn func(i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}

	workers = NumWorkers(workers)
	if workers > n {
		workers = n
	}

	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}

		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo := lo // per-iteration copy; captured by the goroutine below
		hi := min(lo+chunk, n)

		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
			}

			return nil
		})
	}

	return g.Wait()
}
