package gpio

import (
	"context"
	"time"
)

// Blink flashes line n times, each flash lasting period on and period off.
// The line is left low.
func Blink(ctx context.Context, line Line, n int, period time.Duration) error {
	defer line.Low()

	for i := 0; i < n; i++ {
		if err := line.High(); err != nil {
			return err
		}
		if err := wait(ctx, period); err != nil {
			return err
		}
		if err := line.Low(); err != nil {
			return err
		}
		if i < n-1 {
			if err := wait(ctx, period); err != nil {
				return err
			}
		}
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
