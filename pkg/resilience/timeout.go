package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
)

// Bounded runs fn under a deadline of timeout and returns as soon as either
// fn finishes or the deadline passes. fn is not interrupted: it sees its
// context cancelled and its late result is discarded. A non-positive timeout
// calls fn directly.
//
// On expiry the error matches apperrors.ErrTimeout and
// context.DeadlineExceeded. Cancellation of ctx itself is reported as such.
func Bounded[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	expired := fmt.Errorf("%s: %w: %w (limit: %v)", name, apperrors.ErrTimeout, context.DeadlineExceeded, timeout)
	bctx, cancel := context.WithTimeoutCause(ctx, timeout, expired)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	out := make(chan result, 1)
	go func() {
		v, err := fn(bctx)
		out <- result{v, err}
	}()

	var zero T
	select {
	case r := <-out:
		if bctx.Err() == nil || !errors.Is(r.err, context.DeadlineExceeded) {
			return r.v, r.err
		}
	case <-bctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%s: cancelled: %w", name, err)
	}
	return zero, context.Cause(bctx)
}

// WithTimeout is Bounded for functions without a result.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(context.Context) error) error {
	_, err := Bounded(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
