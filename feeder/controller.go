package feeder

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/autofeed"
)

// TimeoutPolicy decides what a weight timeout does to the sequence
type TimeoutPolicy int

const (
	// ProceedOnTimeout keeps feeding after a weight timeout so the hardware is never left mid-cycle.
	// The dispensed amount is then unverified, so the timeout is reported as a warning
	ProceedOnTimeout TimeoutPolicy = iota
	// AbortOnTimeout treats a weight timeout like a stop request
	AbortOnTimeout
)

// Reporter receives progress and the terminal status of every start request
type Reporter interface {
	Report(autofeed.StatusLine)
}

type noopReporter struct{}

func (noopReporter) Report(autofeed.StatusLine) {}

// Result is the single terminal outcome of Start
type Result struct {
	Status autofeed.Status
	// Err is the reason for a rejected or aborted sequence
	Err error
	// Reduction is the weight wait measurement, if the sequence got that far
	Reduction Reduction
	Warnings  []string
	Started   time.Time
	Finished  time.Time
}

// Status is a snapshot of the Controller
type Status struct {
	State  autofeed.State
	Active bool
	Last   *Result
}

// Config has the collaborators for a Controller. Actuator, Motor, Blower and Scale are required
type Config struct {
	Actuator   Actuator
	Motor      DosingMotor
	Blower     Blower
	Scale      WeightSensor
	Telemetry  Telemetry
	Dispatcher Dispatcher
	Reporter   Reporter
	Clock      Clock

	// PollInterval defaults to PollInterval
	PollInterval  time.Duration
	TimeoutPolicy TimeoutPolicy
}

// Controller runs feeding sequences. It owns the peripherals while a sequence is active, and it is
// the only thing that moves them during one. At most one sequence is ever active: Start is
// rejected, not queued, while another is running
type Controller struct {
	actuator Actuator
	motor    DosingMotor
	blower   Blower
	reporter Reporter
	clock    Clock
	policy   TimeoutPolicy

	waiter  *Waiter
	monitor *Monitor
	guard   *telemetryGuard

	state  atomic.Int32
	active atomic.Bool
	stop   atomic.Bool

	mu   sync.Mutex
	last *Result
}

// New creates a Controller in the Idle state
func New(cfg Config) (*Controller, error) {
	if cfg.Actuator == nil || cfg.Motor == nil || cfg.Blower == nil || cfg.Scale == nil {
		return nil, errors.New("actuator, motor, blower and scale are required")
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = noopTelemetry{}
	}
	if cfg.Reporter == nil {
		cfg.Reporter = noopReporter{}
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = PollInterval
	}

	c := &Controller{
		actuator: cfg.Actuator,
		motor:    cfg.Motor,
		blower:   cfg.Blower,
		reporter: cfg.Reporter,
		clock:    cfg.Clock,
		policy:   cfg.TimeoutPolicy,
		guard:    &telemetryGuard{telemetry: cfg.Telemetry},
	}
	c.waiter = &Waiter{
		clock:   cfg.Clock,
		slice:   cfg.PollInterval,
		stopped: c.stopped,
	}
	c.monitor = &Monitor{
		clock:   cfg.Clock,
		slice:   cfg.PollInterval,
		sensor:  cfg.Scale,
		guard:   c.guard,
		stopped: c.stopped,
	}
	c.SetDispatcher(cfg.Dispatcher)

	return c, nil
}

// SetDispatcher sets the command dispatcher that is pumped while waiting. The dispatcher usually
// needs the Controller itself, so it can be set after New
func (c *Controller) SetDispatcher(d Dispatcher) {
	if d == nil {
		d = noopDispatcher{}
	}
	c.waiter.dispatcher = d
	c.monitor.dispatcher = d
}

// State returns the current stage
func (c *Controller) State() autofeed.State {
	return autofeed.State(c.state.Load())
}

// Status returns the current state and the result of the last finished sequence
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:  c.State(),
		Active: c.active.Load(),
		Last:   c.last,
	}
}

// RequestStop asks a running sequence to abort at its next poll point. It only sets a flag: the
// sequence itself stops the peripherals. Returns false, and does nothing, when no sequence is active
func (c *Controller) RequestStop() bool {
	if !c.active.Load() || c.State() == autofeed.StateIdle {
		return false
	}
	c.stop.Store(true)
	return true
}

func (c *Controller) stopped(ctx context.Context) bool {
	return c.stop.Load() || ctx.Err() != nil
}

// Start runs a full feeding sequence and blocks until it is back in Idle. A start while another
// sequence is active is rejected immediately without touching the running one
func (c *Controller) Start(ctx context.Context, p Params) Result {
	if !c.active.CompareAndSwap(false, true) {
		res := Result{Status: autofeed.StatusRejected, Err: ErrSequenceActive}
		c.reporter.Report(autofeed.StatusLine{State: c.State(), Kind: autofeed.KindRejected, Message: ErrSequenceActive.Error()})
		return res
	}

	if err := p.Validate(); err != nil {
		c.active.Store(false)
		res := Result{Status: autofeed.StatusRejected, Err: err}
		c.reporter.Report(autofeed.StatusLine{State: autofeed.StateIdle, Kind: autofeed.KindRejected, Message: err.Error()})
		c.finish(&res)
		return res
	}

	c.stop.Store(false)
	s := &sequence{c: c, params: p, res: Result{Started: c.clock.Now()}}
	c.report(autofeed.StateIdle, autofeed.KindInfo, "starting sequence: target "+grams(p.TargetGrams)+" tolerance "+grams(p.ToleranceGrams))

	state := autofeed.StateExtendGate
	for state != autofeed.StateIdle {
		c.state.Store(int32(state))
		state = s.step(ctx, state)
	}

	return s.res
}

func (c *Controller) report(state autofeed.State, kind autofeed.Kind, msg string) {
	c.reporter.Report(autofeed.StatusLine{State: state, Kind: kind, Message: msg})
}

func (c *Controller) finish(res *Result) {
	c.mu.Lock()
	c.last = res
	c.mu.Unlock()
}

func (c *Controller) stopAll() {
	c.actuator.Stop()
	c.motor.Stop()
	c.blower.Stop()
}

// sequence is the state for one Start call
type sequence struct {
	c      *Controller
	params Params
	res    Result
	reason error
}

func (s *sequence) wait(ctx context.Context, d time.Duration) bool {
	return s.c.waiter.Wait(ctx, d)
}

// abort records why the sequence is aborting and moves it to the Aborting state
func (s *sequence) abort(ctx context.Context, reason error) autofeed.State {
	if reason == nil {
		reason = ErrStopped
		if ctx.Err() != nil && !s.c.stop.Load() {
			reason = ctx.Err()
		}
	}
	s.reason = reason
	return autofeed.StateAborting
}

func (s *sequence) step(ctx context.Context, state autofeed.State) autofeed.State {
	c := s.c
	p := s.params

	switch state {
	case autofeed.StateExtendGate:
		c.report(state, autofeed.KindStage, "extending gate for "+p.Extend.String())
		c.actuator.Extend()
		ok := s.wait(ctx, p.Extend)
		c.actuator.Stop()
		if !ok {
			return s.abort(ctx, nil)
		}
		return autofeed.StateDoseWaitForWeight

	case autofeed.StateDoseWaitForWeight:
		c.report(state, autofeed.KindStage, "waiting for "+grams(p.TargetGrams)+" reduction, max "+p.MaxWeightWait.String())
		r := c.monitor.WaitForReduction(ctx, p.TargetGrams, p.ToleranceGrams, p.MaxWeightWait)
		s.res.Reduction = r
		switch r.Outcome {
		case OutcomeAborted:
			return s.abort(ctx, nil)
		case OutcomeTimedOut:
			msg := "weight target not reached after " + r.Elapsed.String() + ", measured " + grams(r.Grams)
			s.res.Warnings = append(s.res.Warnings, msg)
			c.report(state, autofeed.KindWarning, msg)
			if c.policy == AbortOnTimeout {
				return s.abort(ctx, ErrWeightTimeout)
			}
		default:
			c.report(state, autofeed.KindInfo, "reduction "+grams(r.Grams)+" after "+r.Elapsed.String())
		}
		return autofeed.StateRetractGate

	case autofeed.StateRetractGate:
		c.report(state, autofeed.KindStage, "retracting gate for "+p.Retract.String())
		c.actuator.Retract()
		ok := s.wait(ctx, p.Retract)
		c.actuator.Stop()
		if !ok || !s.wait(ctx, p.Settle) {
			return s.abort(ctx, nil)
		}
		return autofeed.StateDoseAndAerate

	case autofeed.StateDoseAndAerate:
		c.report(state, autofeed.KindStage, "dosing for "+p.Motor.String()+", aerating for "+p.Blower.String())
		if !RunConcurrent(ctx, c.waiter, Forward(c.motor), p.Motor, c.blower, p.Blower) {
			return s.abort(ctx, nil)
		}
		return autofeed.StateCompleted

	case autofeed.StateAborting:
		c.stopAll()
		c.guard.Release()
		s.res.Status = autofeed.StatusAborted
		s.res.Err = s.reason
		s.res.Finished = c.clock.Now()
		c.finish(&s.res)
		c.state.Store(int32(autofeed.StateIdle))
		c.stop.Store(false)
		c.active.Store(false)
		c.report(autofeed.StateIdle, autofeed.KindAborted, s.reason.Error())
		return autofeed.StateIdle

	case autofeed.StateCompleted:
		s.res.Status = autofeed.StatusCompleted
		s.res.Finished = c.clock.Now()
		c.finish(&s.res)
		c.state.Store(int32(autofeed.StateIdle))
		c.stop.Store(false)
		c.active.Store(false)
		msg := "sequence completed in " + s.res.Finished.Sub(s.res.Started).String()
		if len(s.res.Warnings) > 0 {
			msg += " with " + strconv.Itoa(len(s.res.Warnings)) + " warning(s)"
		}
		c.report(autofeed.StateIdle, autofeed.KindCompleted, msg)
		return autofeed.StateIdle
	}

	// unreachable for a valid state, but never leave peripherals running
	s.reason = errors.New("unexpected state " + state.String())
	return autofeed.StateAborting
}

func grams(g float32) string {
	return strconv.FormatFloat(float64(g), 'f', 1, 32) + "g"
}
