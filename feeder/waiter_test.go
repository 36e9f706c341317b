package feeder

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitFullDuration(t *testing.T) {
	tests := []struct {
		name  string
		d     time.Duration
		calls int
	}{
		{"Zero", 0, 0},
		{"OneSlice", 100 * time.Millisecond, 1},
		{"PartialSlice", 250 * time.Millisecond, 3},
		{"ThreeSeconds", 3 * time.Second, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			d := &hookDispatcher{}
			var stop atomic.Bool
			w := newTestWaiter(clock, d, &stop)

			assert.True(t, w.Wait(context.Background(), tt.d))
			assert.Equal(t, tt.d, clock.elapsed())
			assert.Len(t, d.modes, tt.calls)
			for _, m := range d.modes {
				assert.Equal(t, DispatchAll, m)
			}
		})
	}
}

func TestWaitInterruptedByDispatchedStop(t *testing.T) {
	clock := newFakeClock()
	var stop atomic.Bool
	d := &hookDispatcher{}
	d.hook = func(DispatchMode) {
		if clock.elapsed() >= 1200*time.Millisecond {
			stop.Store(true)
		}
	}
	w := newTestWaiter(clock, d, &stop)

	assert.False(t, w.Wait(context.Background(), 5*time.Second))
	// the stop is seen right after the dispatcher handled it, without sleeping another slice
	assert.Equal(t, 1200*time.Millisecond, clock.elapsed())
}

func TestWaitAlreadyStopped(t *testing.T) {
	clock := newFakeClock()
	var stop atomic.Bool
	stop.Store(true)
	d := &hookDispatcher{}
	w := newTestWaiter(clock, d, &stop)

	assert.False(t, w.Wait(context.Background(), time.Second))
	assert.Zero(t, clock.elapsed())
	assert.Empty(t, d.modes)
}

func TestWaitContextCancelled(t *testing.T) {
	clock := newFakeClock()
	var stop atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &hookDispatcher{}
	d.hook = func(DispatchMode) {
		if clock.elapsed() >= 500*time.Millisecond {
			cancel()
		}
	}
	w := newTestWaiter(clock, d, &stop)

	assert.False(t, w.Wait(ctx, 2*time.Second))
	assert.Equal(t, 500*time.Millisecond, clock.elapsed())
}
