package feeder

import (
	"context"
	"time"
)

// Waiter blocks a stage for a duration while polling for a stop request every slice. Each slice it
// hands control to the dispatcher so other commands keep flowing. It never touches peripherals
type Waiter struct {
	clock      Clock
	slice      time.Duration
	dispatcher Dispatcher
	stopped    func(context.Context) bool
}

// Wait returns true if the full duration elapsed and false if it was interrupted
func (w *Waiter) Wait(ctx context.Context, d time.Duration) bool {
	start := w.clock.Now()
	for {
		if w.stopped(ctx) {
			return false
		}

		elapsed := w.clock.Now().Sub(start)
		if elapsed >= d {
			return true
		}

		w.dispatcher.ProcessPending(DispatchAll)
		if w.stopped(ctx) {
			return false
		}

		w.clock.Sleep(min(w.slice, d-elapsed))
	}
}
