package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/calvinmclean/autofeed"
	"github.com/calvinmclean/autofeed/feeder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type input struct {
	*bytes.Buffer
}

func (i input) Buffered() int { return i.Len() }

type fakeFeeder struct {
	active  bool
	starts  []feeder.Params
	stops   int
	onStart func(feeder.Params)
}

func (f *fakeFeeder) Start(_ context.Context, p feeder.Params) feeder.Result {
	f.starts = append(f.starts, p)
	if f.onStart != nil {
		f.active = true
		f.onStart(p)
		f.active = false
	}
	return feeder.Result{Status: autofeed.StatusCompleted}
}

func (f *fakeFeeder) RequestStop() bool {
	if !f.active {
		return false
	}
	f.stops++
	return true
}

func (f *fakeFeeder) Status() feeder.Status {
	return feeder.Status{State: autofeed.StateIdle, Active: f.active}
}

type fakeDevice struct {
	calls []string
}

func (f *fakeDevice) Extend()  { f.calls = append(f.calls, "extend") }
func (f *fakeDevice) Retract() { f.calls = append(f.calls, "retract") }
func (f *fakeDevice) Forward() { f.calls = append(f.calls, "forward") }
func (f *fakeDevice) Reverse() { f.calls = append(f.calls, "reverse") }
func (f *fakeDevice) Start()   { f.calls = append(f.calls, "start") }
func (f *fakeDevice) Stop()    { f.calls = append(f.calls, "stop") }

type fakeTelemetry struct {
	enabled bool
}

func (f *fakeTelemetry) Enable(on bool) { f.enabled = on }
func (f *fakeTelemetry) Active() bool   { return f.enabled }

type harness struct {
	in        input
	out       *bytes.Buffer
	feeder    *fakeFeeder
	device    *fakeDevice
	telemetry *fakeTelemetry
	d         *Dispatcher
}

func newHarness() *harness {
	h := &harness{
		in:        input{&bytes.Buffer{}},
		out:       &bytes.Buffer{},
		feeder:    &fakeFeeder{},
		device:    &fakeDevice{},
		telemetry: &fakeTelemetry{},
	}
	h.d = New(context.Background(), h.in, h.out, Devices{
		Feeder:    h.feeder,
		Actuator:  h.device,
		Motor:     h.device,
		Blower:    h.device,
		Telemetry: h.telemetry,
		Defaults:  feeder.DefaultParams(),
	})
	return h
}

func (h *harness) send(lines ...string) {
	for _, l := range lines {
		h.in.WriteString(l + "\r\n")
	}
	h.d.ProcessPending(feeder.DispatchAll)
}

func TestFeederStart(t *testing.T) {
	tests := []struct {
		name   string
		arg    string
		dose   float32
		motor  time.Duration
		blower time.Duration
	}{
		{"MotorOnly", "50,6", 50, 6 * time.Second, 6 * time.Second},
		{"WithBlower", "120.5,4,10", 120.5, 4 * time.Second, 10 * time.Second},
		{"FractionalSeconds", "30,1.5,0.25", 30, 1500 * time.Millisecond, 250 * time.Millisecond},
		{"Spaces", " 75 , 2 ", 75, 2 * time.Second, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.send("[control]:feeder:start:" + tt.arg)

			require.Len(t, h.feeder.starts, 1)
			p := h.feeder.starts[0]
			assert.Equal(t, tt.dose, p.TargetGrams)
			assert.Equal(t, tt.motor, p.Motor)
			assert.Equal(t, tt.blower, p.Blower)

			defaults := feeder.DefaultParams()
			assert.Equal(t, defaults.Extend, p.Extend)
			assert.Equal(t, defaults.Retract, p.Retract)
			assert.Equal(t, defaults.ToleranceGrams, p.ToleranceGrams)
			assert.Empty(t, h.out.String())
		})
	}
}

func TestFeederStartInvalid(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		err  string
	}{
		{"Empty", "", "expected <doseGrams>"},
		{"OneField", "50", "expected <doseGrams>"},
		{"TooMany", "50,1,2,3", "expected <doseGrams>"},
		{"BadDose", "lots,1", "invalid dose"},
		{"BadMotor", "50,x", "invalid motor duration"},
		{"BadBlower", "50,1,y", "invalid blower duration"},
		{"InfiniteDose", "inf,1", "invalid dose: must be a finite number"},
		{"NaNDose", "nan,1", "invalid dose: must be a finite number"},
		{"HugeDose", "1e300,1", "invalid dose"},
		{"InfiniteMotor", "50,+Inf", "invalid motor duration: must be a finite number"},
		{"HugeMotor", "50,1e300", "invalid motor duration: out of range"},
		{"NaNBlower", "50,1,NaN", "invalid blower duration: must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.send("[control]:feeder:start:" + tt.arg)

			assert.Empty(t, h.feeder.starts)
			assert.Contains(t, h.out.String(), "error: "+tt.err)
		})
	}
}

func TestFeederPreset(t *testing.T) {
	h := newHarness()
	h.send("[control]:feeder:preset:large", "[control]:feeder:preset:huge")

	require.Len(t, h.feeder.starts, 1)
	assert.Equal(t, float32(200), h.feeder.starts[0].TargetGrams)
	assert.Equal(t, "error: unknown preset: huge\r\n", h.out.String())
}

func TestFeederStop(t *testing.T) {
	t.Run("Idle", func(t *testing.T) {
		h := newHarness()
		h.send("[control]:feeder:stop")
		assert.Equal(t, "no active sequence to stop\r\n", h.out.String())
		assert.Zero(t, h.feeder.stops)
	})

	t.Run("DuringSequence", func(t *testing.T) {
		h := newHarness()
		h.feeder.onStart = func(feeder.Params) {
			h.in.WriteString("[control]:feeder:stop\n")
			h.d.ProcessPending(feeder.DispatchStopOnly)
		}
		h.send("[control]:feeder:start:50,6")

		require.Len(t, h.feeder.starts, 1)
		assert.Equal(t, 1, h.feeder.stops)
		assert.Equal(t, "stop requested\r\n", h.out.String())
	})
}

func TestLimitedMode(t *testing.T) {
	h := newHarness()
	h.feeder.onStart = func(feeder.Params) {
		h.in.WriteString("[control]:feeder:start:20,1\n[control]:feeder:status\n")
		h.d.ProcessPending(feeder.DispatchStopOnly)
	}
	h.send("[control]:feeder:start:50,6")

	require.Len(t, h.feeder.starts, 1)
	assert.Equal(t,
		"error: busy: feeder:start ignored while waiting for weight\r\n"+
			"error: busy: feeder:status ignored while waiting for weight\r\n",
		h.out.String(),
	)
}

func TestNestedStartReachesFeeder(t *testing.T) {
	h := newHarness()
	h.feeder.onStart = func(p feeder.Params) {
		if p.TargetGrams != 50 {
			return
		}
		h.in.WriteString("[control]:feeder:start:20,1\n")
		h.d.ProcessPending(feeder.DispatchAll)
	}
	h.send("[control]:feeder:start:50,6")

	require.Len(t, h.feeder.starts, 2)
	assert.Equal(t, float32(20), h.feeder.starts[1].TargetGrams)
}

func TestManualCommands(t *testing.T) {
	tests := []struct {
		cmd      string
		expected string
		output   string
	}{
		{"blower:on", "start", "blower on"},
		{"blower:off", "stop", "blower off"},
		{"auger:forward", "forward", "auger forward"},
		{"auger:reverse", "reverse", "auger reverse"},
		{"auger:stop", "stop", "auger stopped"},
		{"actuator:up", "extend", "actuator extending"},
		{"actuator:down", "retract", "actuator retracting"},
		{"actuator:stop", "stop", "actuator stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			h := newHarness()
			h.send(autofeed.CommandPrefix + tt.cmd)
			assert.Equal(t, []string{tt.expected}, h.device.calls)
			assert.Equal(t, tt.output+"\r\n", h.out.String())
		})

		t.Run(tt.cmd+"WhileActive", func(t *testing.T) {
			h := newHarness()
			h.feeder.active = true
			err := h.d.Execute(autofeed.CommandPrefix+tt.cmd, feeder.DispatchAll)
			require.ErrorIs(t, err, ErrBusy)
			assert.Empty(t, h.device.calls)
		})
	}
}

func TestTelemetry(t *testing.T) {
	h := newHarness()
	h.send("[control]:telemetry:on")
	assert.True(t, h.telemetry.enabled)

	h.send("[control]:telemetry:off")
	assert.False(t, h.telemetry.enabled)
	assert.Equal(t, "telemetry on\r\ntelemetry off\r\n", h.out.String())
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   feeder.Status
		expected string
	}{
		{
			"Idle",
			feeder.Status{State: autofeed.StateIdle},
			"STATUS state=Idle active=false",
		},
		{
			"Active",
			feeder.Status{State: autofeed.StateDoseWaitForWeight, Active: true},
			"STATUS state=DoseWaitForWeight active=true",
		},
		{
			"LastAborted",
			feeder.Status{State: autofeed.StateIdle, Last: &feeder.Result{Status: autofeed.StatusAborted, Err: feeder.ErrStopped}},
			`STATUS state=Idle active=false last=aborted reason="stopped by request"`,
		},
		{
			"LastCompleted",
			feeder.Status{State: autofeed.StateIdle, Last: &feeder.Result{Status: autofeed.StatusCompleted}},
			"STATUS state=Idle active=false last=completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusLine(tt.status))
		})
	}

	h := newHarness()
	h.send("[control]:feeder:status")
	assert.Equal(t, "STATUS state=Idle active=false\r\n", h.out.String())
}

func TestInvalidLines(t *testing.T) {
	h := newHarness()
	h.send("hello", "[control]:nope:nothing", "", "   ")

	assert.Equal(t,
		"error: invalid command format: hello\r\n"+
			"error: unknown command: nope:nothing\r\n",
		h.out.String(),
	)
}

func TestPartialLine(t *testing.T) {
	h := newHarness()
	h.in.WriteString("[control]:blower")
	h.d.ProcessPending(feeder.DispatchAll)
	assert.Empty(t, h.device.calls)

	h.in.WriteString(":on\n")
	h.d.ProcessPending(feeder.DispatchAll)
	assert.Equal(t, []string{"start"}, h.device.calls)
}

func TestLongLineTruncated(t *testing.T) {
	h := newHarness()
	h.send("[control]:blower:on" + strings.Repeat("x", 2*maxLineLength))
	assert.Contains(t, h.out.String(), "error: unknown command: blower:on")
	assert.Empty(t, h.device.calls)
}

func TestHelp(t *testing.T) {
	h := newHarness()
	h.send("[control]:help")

	out := h.out.String()
	assert.True(t, strings.HasPrefix(out, "Available Commands:\r\n"))
	for _, cmd := range commands {
		assert.Contains(t, out, autofeed.CommandPrefix+cmd.Name+": "+cmd.Description)
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		arg  string
	}{
		{"help", "help", ""},
		{"feeder:stop", "feeder:stop", ""},
		{"feeder:start:50,6", "feeder:start", "50,6"},
		{"feeder:preset:small:extra", "feeder:preset", "small:extra"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, arg := splitCommand(tt.in)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.arg, arg)
		})
	}
}
