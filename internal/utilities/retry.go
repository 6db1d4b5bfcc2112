package utilities

import (
	"context"
	"time"
)

// RetryWithBackoff calls fn until it succeeds, ctx is done, or maxRetry attempts are
// exhausted (maxRetry <= 0 means no limit). The backoff doubles each time, up to
// maxBackoff. onRetry, when set, sees every failed attempt and the wait before the next.
func RetryWithBackoff(
	ctx context.Context,
	fn func() error,
	maxRetry int,
	startBackoff, maxBackoff time.Duration,
	onRetry func(attempt int, err error, wait time.Duration),
) error {
	backoff := startBackoff
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if maxRetry > 0 && attempt >= maxRetry {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}
