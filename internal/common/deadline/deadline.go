// Package deadline bounds a blocking call by a time budget.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Do when the budget elapses first. It matches
// context.DeadlineExceeded under errors.Is.
var ErrTimeout = fmt.Errorf("deadline: budget exceeded: %w", context.DeadlineExceeded)

// Do runs fn with a context limited to d and returns its result. When the
// budget runs out before fn returns, Do returns ErrTimeout without waiting for
// fn; fn still sees its context canceled. A non-positive d only inherits the
// parent's deadline.
func Do[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() != nil {
			return zero, ErrTimeout
		}
		return r.v, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
