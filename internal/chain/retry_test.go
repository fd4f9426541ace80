package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesRetryableErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", WrapRetryable(errors.New("flaky"))
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (int, error) {
		calls++
		return 0, warderr.ErrUserRejected
	})
	require.Error(t, err)
	assert.True(t, warderr.Is(err, warderr.ErrUserRejected))
	assert.Equal(t, 1, calls, "user rejection must never be re-prompted")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (int, error) {
		calls++
		return 0, WrapRetryable(errors.New("always down"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithConfig(ctx, RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}, func() (int, error) {
		return 0, WrapRetryable(errors.New("down"))
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(warderr.ErrRateLimited))
	assert.True(t, IsRetryable(warderr.ErrNetworkOrTimeout))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(WrapRetryable(errors.New("x"))))
}

func TestRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("rpc"))
	assert.True(t, rl.Allow("rpc"))
	assert.False(t, rl.Allow("rpc"), "burst exhausted")
	assert.True(t, rl.Allow("api"), "endpoints are limited independently")
}
