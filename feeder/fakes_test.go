package feeder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/autofeed"
)

var epoch = time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

// fakeClock only moves when something sleeps
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }
func (c *fakeClock) elapsed() time.Duration {
	return c.now.Sub(epoch)
}

type event struct {
	name string
	at   time.Duration
}

type recorder struct {
	clock  *fakeClock
	events []event
}

func (r *recorder) add(name string) {
	r.events = append(r.events, event{name, r.clock.elapsed()})
}

func (r *recorder) names() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

// last returns when the named event last happened
func (r *recorder) last(name string) (time.Duration, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].name == name {
			return r.events[i].at, true
		}
	}
	return 0, false
}

type fakeActuator struct {
	rec   *recorder
	state string
}

func (a *fakeActuator) Extend()  { a.state = "extending"; a.rec.add("actuator.extend") }
func (a *fakeActuator) Retract() { a.state = "retracting"; a.rec.add("actuator.retract") }
func (a *fakeActuator) Stop()    { a.state = "stopped"; a.rec.add("actuator.stop") }

type fakeMotor struct {
	rec   *recorder
	state string
}

func (m *fakeMotor) Forward() { m.state = "forward"; m.rec.add("motor.forward") }
func (m *fakeMotor) Reverse() { m.state = "reverse"; m.rec.add("motor.reverse") }
func (m *fakeMotor) Stop()    { m.state = "stopped"; m.rec.add("motor.stop") }

type fakeBlower struct {
	rec     *recorder
	running bool
}

func (b *fakeBlower) Start() { b.running = true; b.rec.add("blower.start") }
func (b *fakeBlower) Stop()  { b.running = false; b.rec.add("blower.stop") }

// fakeScale returns a weight computed from the time since the clock started
type fakeScale struct {
	clock *fakeClock
	grams func(elapsed time.Duration) float32
	reads int
}

func (s *fakeScale) ReadGrams() float32 {
	s.reads++
	return s.grams(s.clock.elapsed())
}

func constantWeight(g float32) func(time.Duration) float32 {
	return func(time.Duration) float32 { return g }
}

// fallingWeight loses rate grams per second, starting after delay
func fallingWeight(initial, rate float32, delay time.Duration) func(time.Duration) float32 {
	return func(elapsed time.Duration) float32 {
		if elapsed < delay {
			return initial
		}
		return initial - rate*float32((elapsed-delay).Seconds())
	}
}

type fakeTelemetry struct {
	enabled bool
	paused  bool
	pauses  int
	resumes int
}

func (t *fakeTelemetry) Active() bool { return t.enabled && !t.paused }
func (t *fakeTelemetry) Pause()       { t.paused = true; t.pauses++ }
func (t *fakeTelemetry) Resume()      { t.paused = false; t.resumes++ }

type hookDispatcher struct {
	modes []DispatchMode
	hook  func(DispatchMode)
}

func (d *hookDispatcher) ProcessPending(mode DispatchMode) {
	d.modes = append(d.modes, mode)
	if d.hook != nil {
		d.hook(mode)
	}
}

type collectReporter struct {
	lines []autofeed.StatusLine
}

func (r *collectReporter) Report(l autofeed.StatusLine) {
	r.lines = append(r.lines, l)
}

func (r *collectReporter) kinds() []autofeed.Kind {
	var out []autofeed.Kind
	for _, l := range r.lines {
		out = append(out, l.Kind)
	}
	return out
}

type rig struct {
	clock      *fakeClock
	rec        *recorder
	actuator   *fakeActuator
	motor      *fakeMotor
	blower     *fakeBlower
	scale      *fakeScale
	telemetry  *fakeTelemetry
	dispatcher *hookDispatcher
	reporter   *collectReporter
	controller *Controller
}

func newRig(weight func(time.Duration) float32, policy TimeoutPolicy) *rig {
	clock := newFakeClock()
	rec := &recorder{clock: clock}
	r := &rig{
		clock:      clock,
		rec:        rec,
		actuator:   &fakeActuator{rec: rec, state: "stopped"},
		motor:      &fakeMotor{rec: rec, state: "stopped"},
		blower:     &fakeBlower{rec: rec},
		scale:      &fakeScale{clock: clock, grams: weight},
		telemetry:  &fakeTelemetry{enabled: true},
		dispatcher: &hookDispatcher{},
		reporter:   &collectReporter{},
	}

	c, err := New(Config{
		Actuator:      r.actuator,
		Motor:         r.motor,
		Blower:        r.blower,
		Scale:         r.scale,
		Telemetry:     r.telemetry,
		Dispatcher:    r.dispatcher,
		Reporter:      r.reporter,
		Clock:         clock,
		TimeoutPolicy: policy,
	})
	if err != nil {
		panic(err)
	}
	r.controller = c
	return r
}

func (r *rig) allStopped() bool {
	return r.actuator.state == "stopped" && r.motor.state == "stopped" && !r.blower.running
}

// testParams is a short sequence: gate opens for 1s, the weight wait has 10s, dosing 3s and
// aeration 2s
func testParams() Params {
	return Params{
		TargetGrams:    20,
		ToleranceGrams: 2,
		Extend:         time.Second,
		Retract:        time.Second,
		Settle:         500 * time.Millisecond,
		Motor:          3 * time.Second,
		Blower:         2 * time.Second,
		MaxWeightWait:  10 * time.Second,
	}
}

func newTestWaiter(clock Clock, d Dispatcher, stop *atomic.Bool) *Waiter {
	return &Waiter{
		clock:      clock,
		slice:      PollInterval,
		dispatcher: d,
		stopped: func(ctx context.Context) bool {
			return stop.Load() || ctx.Err() != nil
		},
	}
}

func newTestMonitor(clock Clock, scale WeightSensor, telemetry Telemetry, d Dispatcher, stop *atomic.Bool) *Monitor {
	return &Monitor{
		clock:      clock,
		slice:      PollInterval,
		sensor:     scale,
		guard:      &telemetryGuard{telemetry: telemetry},
		dispatcher: d,
		stopped: func(ctx context.Context) bool {
			return stop.Load() || ctx.Err() != nil
		},
	}
}
