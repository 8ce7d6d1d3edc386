package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsAfterBudget(t *testing.T) {
	calls := 0
	retry := Retry{MaxAttempts: 3, Backoff: time.Millisecond}

	err := retry.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errors.New("element not visible"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetrySucceedsMidBudget(t *testing.T) {
	calls := 0
	retry := Retry{MaxAttempts: 5, Backoff: time.Millisecond}

	err := retry.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("not yet"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryTerminalErrorNotRetried(t *testing.T) {
	calls := 0
	terminal := errors.New("page context gone")
	retry := Retry{MaxAttempts: 5, Backoff: time.Millisecond}

	err := retry.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return terminal
	})

	require.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	retry := Retry{MaxAttempts: 3, Backoff: time.Second}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return Retryable(errors.New("never"))
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Retry{}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
