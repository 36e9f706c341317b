package feeder

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConcurrent(t *testing.T) {
	tests := []struct {
		name    string
		motor   time.Duration
		blower  time.Duration
		ordered []string
	}{
		{
			"MotorLonger",
			6 * time.Second, 5 * time.Second,
			[]string{"motor.forward", "blower.start", "blower.stop", "motor.stop"},
		},
		{
			"BlowerLonger",
			2 * time.Second, 4500 * time.Millisecond,
			[]string{"motor.forward", "blower.start", "motor.stop", "blower.stop"},
		},
		{
			"Equal",
			3 * time.Second, 3 * time.Second,
			[]string{"motor.forward", "blower.start", "motor.stop", "blower.stop"},
		},
		{
			"ZeroBlower",
			time.Second, 0,
			[]string{"motor.forward", "blower.start", "blower.stop", "motor.stop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			rec := &recorder{clock: clock}
			motor := &fakeMotor{rec: rec}
			blower := &fakeBlower{rec: rec}
			var stop atomic.Bool
			w := newTestWaiter(clock, &hookDispatcher{}, &stop)

			ok := RunConcurrent(context.Background(), w, Forward(motor), tt.motor, blower, tt.blower)
			require.True(t, ok)
			assert.Equal(t, tt.ordered, rec.names())

			motorStop, _ := rec.last("motor.stop")
			blowerStop, _ := rec.last("blower.stop")
			assert.Equal(t, tt.motor, motorStop)
			assert.Equal(t, tt.blower, blowerStop)

			shorter, longer := motorStop, blowerStop
			if tt.blower < tt.motor {
				shorter, longer = blowerStop, motorStop
			}
			assert.LessOrEqual(t, shorter, longer)
			assert.Equal(t, max(tt.motor, tt.blower), longer)
			assert.Equal(t, "stopped", motor.state)
			assert.False(t, blower.running)
		})
	}
}

func TestRunConcurrentInterrupted(t *testing.T) {
	tests := []struct {
		name   string
		stopAt time.Duration
	}{
		{"DuringOverlap", 1500 * time.Millisecond},
		{"DuringRemainder", 5500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			rec := &recorder{clock: clock}
			motor := &fakeMotor{rec: rec}
			blower := &fakeBlower{rec: rec}
			var stop atomic.Bool
			d := &hookDispatcher{hook: func(DispatchMode) {
				if clock.elapsed() >= tt.stopAt {
					stop.Store(true)
				}
			}}
			w := newTestWaiter(clock, d, &stop)

			ok := RunConcurrent(context.Background(), w, Forward(motor), 6*time.Second, blower, 5*time.Second)
			assert.False(t, ok)
			assert.Equal(t, "stopped", motor.state)
			assert.False(t, blower.running)

			motorStop, _ := rec.last("motor.stop")
			assert.Equal(t, tt.stopAt, motorStop)
		})
	}
}
