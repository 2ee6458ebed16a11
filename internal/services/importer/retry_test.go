package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return immediately on first success", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(ctx, func() error {
			calls++
			return nil
		}, 3, time.Millisecond, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("Should retry until an attempt succeeds", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, 3, time.Millisecond, nil)

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Should give up after max attempts and wrap the last error", func(t *testing.T) {
		sentinel := errors.New("still broken")
		calls := 0

		err := retryWithBackoff(ctx, func() error {
			calls++
			return sentinel
		}, 3, time.Millisecond, nil)

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, sentinel)
		assert.Contains(t, err.Error(), "failed after 3 attempts")
	})

	t.Run("Should notify onRetry for every attempt that will be retried", func(t *testing.T) {
		var notified []int
		_ = retryWithBackoff(ctx, func() error {
			return errors.New("transient")
		}, 3, time.Millisecond, func(attempt int, err error) {
			notified = append(notified, attempt)
		})

		// The final attempt fails without a retry, so no notification for it
		assert.Equal(t, []int{1, 2}, notified)
	})

	t.Run("Should wait linearly growing delays between attempts", func(t *testing.T) {
		base := 20 * time.Millisecond
		start := time.Now()

		_ = retryWithBackoff(ctx, func() error {
			return errors.New("transient")
		}, 3, base, nil)

		// Waits are 1*base then 2*base
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 3*base)
	})

	t.Run("Should abort a pending wait when the context is cancelled", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(context.Background())

		calls := 0
		done := make(chan error, 1)
		go func() {
			done <- retryWithBackoff(cancelCtx, func() error {
				calls++
				return errors.New("transient")
			}, 3, time.Hour, nil)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 1, calls, "no further attempts after cancellation")
		case <-time.After(time.Second):
			t.Fatal("retry did not abort on cancellation")
		}
	})
}
