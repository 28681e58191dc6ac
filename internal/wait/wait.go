package wait

import (
	"context"
	"time"
)

// Waiter runs interruptible countdowns. Implementations tick once per whole
// second of the countdown with the remaining time, so observers can render a
// live timer, and honor cancellation within one tick.
type Waiter interface {
	// Wait blocks for the given number of seconds, calling onTick with the
	// remaining seconds before each one elapses. It returns false when the
	// context was cancelled before the full duration ran.
	Wait(ctx context.Context, seconds int, onTick func(remaining int)) bool
}

// Ticking is a Waiter backed by a real clock.
type Ticking struct {
	interval time.Duration
}

// NewTicking creates a Waiter that treats interval as one countdown second.
// A zero or negative interval means a real second.
func NewTicking(interval time.Duration) Ticking {
	if interval <= 0 {
		interval = time.Second
	}
	return Ticking{interval: interval}
}

// Wait satisfies Waiter.
func (w Ticking) Wait(ctx context.Context, seconds int, onTick func(remaining int)) bool {
	if seconds <= 0 {
		return true
	}

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for remaining := seconds; remaining > 0; remaining-- {
		if ctx.Err() != nil {
			return false
		}

		if onTick != nil {
			onTick(remaining)
		}

		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}

		timer.Reset(w.interval)
	}

	return true
}
