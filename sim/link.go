package sim

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinmclean/autofeed/feeder"
	"github.com/calvinmclean/autofeed/firmware/commands"
	"github.com/calvinmclean/autofeed/firmware/telemetry"
)

const loopInterval = 10 * time.Millisecond

// Config configures a simulated feeder
type Config struct {
	Hopper            HopperConfig
	Defaults          feeder.Params
	TelemetryInterval time.Duration
	TimeoutPolicy     feeder.TimeoutPolicy
	// Clock defaults to the real clock
	Clock feeder.Clock
}

// Link runs the feeder firmware logic in-process against a simulated Hopper. It is an
// io.ReadWriteCloser that behaves like the serial port of a real feeder: command lines are written
// to it and status, telemetry and command output is read from it
type Link struct {
	Hopper *Hopper

	in     *lineBuffer
	outR   *io.PipeReader
	outW   *io.PipeWriter
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ io.ReadWriteCloser = &Link{}

// NewLink starts the simulated firmware loop. It runs until Close
func NewLink(cfg Config, log zerolog.Logger) (*Link, error) {
	if cfg.Clock == nil {
		cfg.Clock = feeder.RealClock()
	}
	if cfg.Defaults == (feeder.Params{}) {
		cfg.Defaults = feeder.DefaultParams()
	}

	ctx, cancel := context.WithCancel(context.Background())
	outR, outW := io.Pipe()

	l := &Link{
		Hopper: NewHopper(cfg.Clock, cfg.Hopper, log),
		in:     &lineBuffer{},
		outR:   outR,
		outW:   outW,
		cancel: cancel,
	}

	tel := telemetry.New(outW, cfg.TelemetryInterval, telemetry.Source{
		Name: "weight",
		Unit: "g",
		Read: func() (float32, bool) { return l.Hopper.ReadGrams(), true },
	})

	f, err := feeder.New(feeder.Config{
		Actuator:      l.Hopper.Actuator(),
		Motor:         l.Hopper.Motor(),
		Blower:        l.Hopper.Blower(),
		Scale:         l.Hopper,
		Telemetry:     tel,
		Reporter:      NewLogReporter(outW, log),
		Clock:         cfg.Clock,
		TimeoutPolicy: cfg.TimeoutPolicy,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	cmds := commands.New(ctx, l.in, outW, commands.Devices{
		Feeder:    f,
		Actuator:  l.Hopper.Actuator(),
		Motor:     l.Hopper.Motor(),
		Blower:    l.Hopper.Blower(),
		Telemetry: tel,
		Defaults:  cfg.Defaults,
	})
	f.SetDispatcher(pumpFunc(func(mode feeder.DispatchMode) {
		cmds.ProcessPending(mode)
		tel.Tick(cfg.Clock.Now())
	}))

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for ctx.Err() == nil {
			cmds.ProcessPending(feeder.DispatchAll)
			tel.Tick(cfg.Clock.Now())
			cfg.Clock.Sleep(loopInterval)
			// a virtual clock does not block, so yield to the writer
			if _, ok := cfg.Clock.(*VirtualClock); ok {
				time.Sleep(time.Millisecond)
			}
		}
	}()

	return l, nil
}

func (l *Link) Read(p []byte) (int, error) {
	return l.outR.Read(p)
}

func (l *Link) Write(p []byte) (int, error) {
	return l.in.Write(p)
}

// Close stops the simulated firmware. A running sequence is aborted
func (l *Link) Close() error {
	l.cancel()
	_ = l.outR.Close()
	l.wg.Wait()
	return l.outW.Close()
}

type pumpFunc func(feeder.DispatchMode)

func (f pumpFunc) ProcessPending(mode feeder.DispatchMode) { f(mode) }

// lineBuffer is the receive buffer of the simulated serial port
type lineBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lineBuffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *lineBuffer) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.ReadByte()
}
