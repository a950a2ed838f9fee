package retryhttp

import (
	"context"
	"time"
)

// sleepContext suspends the calling goroutine for d, waking early if ctx
// is cancelled. It returns nil once the full duration has elapsed and the
// context error otherwise.
//
// If ctx is already done on entry, no timer is scheduled and the context
// error is returned immediately. Cancellation while the wait is
// outstanding wakes the select at the moment of cancellation, not at the
// original expiry. A zero duration still passes through the timer once,
// so "retry immediately" always yields the scheduler before the next
// attempt.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d < 0 {
		d = 0
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
