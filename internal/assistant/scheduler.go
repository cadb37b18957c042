package assistant

import (
	"context"
	"time"
)

// Scheduler suspends the poll loop between attempts.
type Scheduler interface {
	// Wait blocks for d or until ctx is done, returning ctx.Err() in that case.
	Wait(ctx context.Context, d time.Duration) error
}

// TimerScheduler waits on a real timer.
type TimerScheduler struct{}

func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
