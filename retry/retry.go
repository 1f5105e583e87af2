// Package retry provides a small bounded retry policy for remote calls.
// It is a thin wrapper around a handful of known API calls, not a general
// resilience framework: fixed attempt count, exponential backoff, no jitter.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Default policy applied to remote artifact and workflow calls.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 1 * time.Second
)

// Policy describes a bounded retry schedule. The zero value uses the
// package defaults.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

func (p Policy) attempts() int {
	if p.Attempts <= 0 {
		return DefaultAttempts
	}
	return p.Attempts
}

func (p Policy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return DefaultBaseDelay
	}
	return p.BaseDelay
}

// Do runs op up to p.Attempts times, sleeping p.BaseDelay, 2*BaseDelay,
// 4*BaseDelay, ... between attempts. The context cancels the wait. The last
// failure is returned wrapped with the attempt count.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	attempts := p.attempts()

	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt < attempts-1 {
			wait := p.baseDelay() * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
