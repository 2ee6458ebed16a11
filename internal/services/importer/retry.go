package importer

import (
	"context"
	"fmt"
	"time"
)

// retryWithBackoff runs operation up to maxAttempts times. Attempts after the
// first wait (attempt-1) * baseDelay first, so delays grow linearly. The
// context is observed while waiting between attempts; a cancellation there
// aborts immediately with the context's error. onRetry, when non-nil, is
// called after each failed attempt that will be retried.
func retryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration, onRetry func(attempt int, err error)) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * baseDelay
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if onRetry != nil && attempt < maxAttempts {
			onRetry(attempt, err)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
