package feeder

import (
	"context"
	"time"
)

// RunConcurrent runs two peripherals together for their own durations. Both start at once, the
// one with the shorter duration is stopped first and the other keeps running for the difference.
// Equal durations stop both at the same instant. If the wait is interrupted, whatever is still
// running is stopped and false is returned
func RunConcurrent(ctx context.Context, w *Waiter, a Peripheral, durA time.Duration, b Peripheral, durB time.Duration) bool {
	a.Start()
	b.Start()

	shorter, longer := a, b
	if durB < durA {
		shorter, longer = b, a
	}

	if !w.Wait(ctx, min(durA, durB)) {
		a.Stop()
		b.Stop()
		return false
	}

	shorter.Stop()

	remaining := durA - durB
	if remaining < 0 {
		remaining = -remaining
	}
	if remaining > 0 && !w.Wait(ctx, remaining) {
		longer.Stop()
		return false
	}

	longer.Stop()
	return true
}
