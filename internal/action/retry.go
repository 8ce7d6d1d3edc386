package action

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// errRetryable marks failures worth another attempt, such as an element that
// has not become visible yet.
var errRetryable = errors.New("retryable")

// Retryable wraps err so a Retry policy will attempt the step again.
func Retryable(err error) error {
	return fmt.Errorf("%w: %w", errRetryable, err)
}

// Retry is a bounded retry policy: a fixed attempt budget with a flat backoff
// between attempts.
type Retry struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetry mirrors the attempt budget the portal flow was tuned with.
var DefaultRetry = Retry{MaxAttempts: 5, Backoff: 500 * time.Millisecond}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is exhausted. The last error is returned when the budget runs out.
func (r Retry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var last error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !errors.Is(last, errRetryable) {
			return last
		}
		if attempt < attempts-1 && r.Backoff > 0 {
			select {
			case <-time.After(r.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, last)
}
