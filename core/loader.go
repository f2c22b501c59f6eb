package core

import (
	"context"
	"time"

	"pkt.systems/termfolio/schema"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunLoader drives the loader overlay: it reports 0% as active, then each
// step after its delay, then waits hide and reports the loader inactive.
// progress may be nil.
func RunLoader(ctx context.Context, steps []schema.LoaderStep, hide time.Duration, sleep SleepFunc, progress func(percent int, active bool)) error {
	if sleep == nil {
		sleep = sleepContext
	}
	report := func(percent int, active bool) {
		if progress != nil {
			progress(percent, active)
		}
	}
	report(0, true)
	last := 0
	for _, step := range steps {
		if err := sleep(ctx, step.Delay); err != nil {
			return err
		}
		last = step.Percent
		report(last, true)
	}
	if err := sleep(ctx, hide); err != nil {
		return err
	}
	report(last, false)
	return nil
}

// LoaderDuration returns the total time RunLoader waits.
func LoaderDuration(steps []schema.LoaderStep, hide time.Duration) time.Duration {
	total := hide
	for _, step := range steps {
		total += step.Delay
	}
	return total
}
