package feeder

import (
	"context"
	"math"
	"time"
)

// Outcome is how a weight wait ended
type Outcome int

const (
	OutcomeReached Outcome = iota
	OutcomeTimedOut
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReached:
		return "reached"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Sample is a single load cell reading
type Sample struct {
	Grams float32
	At    time.Time
}

func (s Sample) valid() bool {
	return !math.IsNaN(float64(s.Grams)) && !math.IsInf(float64(s.Grams), 0)
}

// Reduction is the result of a weight wait
type Reduction struct {
	Outcome Outcome
	Initial Sample
	Last    Sample
	Grams   float32
	Elapsed time.Duration
}

// Monitor polls the load cell until the hopper has lost the target mass
type Monitor struct {
	clock      Clock
	slice      time.Duration
	sensor     WeightSensor
	guard      *telemetryGuard
	dispatcher Dispatcher
	stopped    func(context.Context) bool
}

func (m *Monitor) sample() Sample {
	return Sample{Grams: m.sensor.ReadGrams(), At: m.clock.Now()}
}

// WaitForReduction blocks until the reduction reaches target-tolerance, maxWait elapses or a stop
// is requested. Telemetry is paused while polling and restored on every return. Only a stop
// command is dispatched while waiting.
//
// A timeout is a soft result: the caller decides whether to proceed. A stuck or invalid sensor
// never fails the wait on its own; it only shows up as no progress until the timeout
func (m *Monitor) WaitForReduction(ctx context.Context, target, tolerance float32, maxWait time.Duration) Reduction {
	m.guard.Acquire()
	defer m.guard.Release()

	start := m.clock.Now()
	r := Reduction{Initial: m.sample()}
	r.Last = r.Initial
	threshold := target - tolerance

	for {
		r.Elapsed = m.clock.Now().Sub(start)
		if m.stopped(ctx) {
			r.Outcome = OutcomeAborted
			return r
		}
		if r.Elapsed > maxWait {
			r.Outcome = OutcomeTimedOut
			return r
		}

		s := m.sample()
		if s.valid() {
			r.Last = s
			if !r.Initial.valid() {
				r.Initial = s
			}
			r.Grams = r.Initial.Grams - s.Grams
			if r.Grams >= threshold {
				r.Outcome = OutcomeReached
				return r
			}
		}

		m.dispatcher.ProcessPending(DispatchStopOnly)
		m.clock.Sleep(m.slice)
	}
}
