package concurrency

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// NewPool returns a new pool where each task respects context cancellation.
// The first failing task cancels its siblings and Wait() will only return
// the first error seen.
func NewPool(ctx context.Context, maxGoroutines int) *pool.ContextPool {
	return pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(maxGoroutines)
}

// Result is the outcome of one task of a FanOut.
type Result[R any] struct {
	Value R
	Err   error
}

// FanOut runs fn once per input, all concurrently, and returns the outcomes
// positionally aligned with inputs. A failing task neither cancels nor
// affects its siblings; its error is reported in its own Result.
//
// No goroutine limit is applied. Callers that need to throttle the underlying
// reads must do so in the datastore they pass to fn.
func FanOut[T, R any](ctx context.Context, inputs []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(inputs))
	if len(inputs) == 0 {
		return results
	}

	p := pool.New().WithContext(ctx)
	for i, input := range inputs {
		p.Go(func(ctx context.Context) error {
			v, err := fn(ctx, input)
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = p.Wait()

	return results
}
