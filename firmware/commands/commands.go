package commands

import (
	"context"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/autofeed"
	"github.com/calvinmclean/autofeed/feeder"
)

const maxLineLength = 128

// ErrBusy is returned for commands that cannot run while a sequence owns the peripherals
var ErrBusy = errors.New("busy")

type busyError struct {
	name   string
	reason string
}

func (e busyError) Error() string     { return "busy: " + e.name + " " + e.reason }
func (e busyError) Is(err error) bool { return err == ErrBusy }

type Command struct {
	Name string
	// Exclusive commands move peripherals, so they are refused while a sequence is active
	Exclusive bool
	// Limited commands are still honored while the weight monitor only accepts a stop
	Limited     bool
	Run         func(*Dispatcher, string) error
	Description string
}

// Feeder runs feeding sequences
type Feeder interface {
	Start(context.Context, feeder.Params) feeder.Result
	RequestStop() bool
	Status() feeder.Status
}

// TelemetrySwitch turns periodic sensor reports on and off
type TelemetrySwitch interface {
	Enable(bool)
	Active() bool
}

// Devices are what the commands operate on
type Devices struct {
	Feeder    Feeder
	Actuator  feeder.Actuator
	Motor     feeder.DosingMotor
	Blower    feeder.Blower
	Telemetry TelemetrySwitch
	// Defaults fill in everything a start command does not specify
	Defaults feeder.Params
}

// Input is the serial line that commands arrive on
type Input interface {
	Buffered() int
	ReadByte() (byte, error)
}

var (
	FeederStartCommand = &Command{
		Name:    "feeder:start",
		Run: func(d *Dispatcher, arg string) error {
			p, err := parseStart(arg, d.dev.Defaults)
			if err != nil {
				return err
			}
			d.dev.Feeder.Start(d.ctx, p)
			return nil
		},
		Description: "Run a feeding sequence. Input: <doseGrams>,<motorSeconds>[,<blowerSeconds>].",
	}
	FeederPresetCommand = &Command{
		Name: "feeder:preset",
		Run: func(d *Dispatcher, arg string) error {
			preset, ok := feeder.LookupPreset(arg)
			if !ok {
				return errors.New("unknown preset: " + arg)
			}
			p := d.dev.Defaults
			p.TargetGrams = preset.Grams
			d.dev.Feeder.Start(d.ctx, p)
			return nil
		},
		Description: "Run a feeding sequence with a preset dose. Input: small, medium or large.",
	}
	FeederStopCommand = &Command{
		Name:    "feeder:stop",
		Limited: true,
		Run: func(d *Dispatcher, _ string) error {
			if !d.dev.Feeder.RequestStop() {
				d.println("no active sequence to stop")
				return nil
			}
			d.println("stop requested")
			return nil
		},
		Description: "Stop the running sequence. Everything is switched off at the next poll.",
	}
	FeederStatusCommand = &Command{
		Name: "feeder:status",
		Run: func(d *Dispatcher, _ string) error {
			d.println(statusLine(d.dev.Feeder.Status()))
			return nil
		},
		Description: "Print the sequence state and the outcome of the last sequence.",
	}
	BlowerOnCommand = &Command{
		Name:      "blower:on",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Blower.Start()
			d.println("blower on")
			return nil
		},
		Description: "Start the blower.",
	}
	BlowerOffCommand = &Command{
		Name:      "blower:off",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Blower.Stop()
			d.println("blower off")
			return nil
		},
		Description: "Stop the blower.",
	}
	AugerForwardCommand = &Command{
		Name:      "auger:forward",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Motor.Forward()
			d.println("auger forward")
			return nil
		},
		Description: "Run the auger forward.",
	}
	AugerReverseCommand = &Command{
		Name:      "auger:reverse",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Motor.Reverse()
			d.println("auger reverse")
			return nil
		},
		Description: "Run the auger in reverse to clear a jam.",
	}
	AugerStopCommand = &Command{
		Name:      "auger:stop",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Motor.Stop()
			d.println("auger stopped")
			return nil
		},
		Description: "Stop the auger.",
	}
	ActuatorUpCommand = &Command{
		Name:      "actuator:up",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Actuator.Extend()
			d.println("actuator extending")
			return nil
		},
		Description: "Extend the gate actuator until stopped.",
	}
	ActuatorDownCommand = &Command{
		Name:      "actuator:down",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Actuator.Retract()
			d.println("actuator retracting")
			return nil
		},
		Description: "Retract the gate actuator until stopped.",
	}
	ActuatorStopCommand = &Command{
		Name:      "actuator:stop",
		Exclusive: true,
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Actuator.Stop()
			d.println("actuator stopped")
			return nil
		},
		Description: "Stop the gate actuator.",
	}
	TelemetryOnCommand = &Command{
		Name: "telemetry:on",
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Telemetry.Enable(true)
			d.println("telemetry on")
			return nil
		},
		Description: "Enable periodic sensor reports.",
	}
	TelemetryOffCommand = &Command{
		Name: "telemetry:off",
		Run: func(d *Dispatcher, _ string) error {
			d.dev.Telemetry.Enable(false)
			d.println("telemetry off")
			return nil
		},
		Description: "Disable periodic sensor reports.",
	}
	HelpCommand = &Command{
		Name: "help",
		Run: func(d *Dispatcher, _ string) error {
			d.println("Available Commands:")
			for _, cmd := range d.order {
				d.println(autofeed.CommandPrefix + cmd.Name + ": " + cmd.Description)
			}
			return nil
		},
		Description: "Show all available commands and their descriptions.",
	}
)

var commands = []*Command{
	FeederStartCommand,
	FeederPresetCommand,
	FeederStopCommand,
	FeederStatusCommand,
	BlowerOnCommand,
	BlowerOffCommand,
	AugerForwardCommand,
	AugerReverseCommand,
	AugerStopCommand,
	ActuatorUpCommand,
	ActuatorDownCommand,
	ActuatorStopCommand,
	TelemetryOnCommand,
	TelemetryOffCommand,
	HelpCommand,
}

// Dispatcher reads command lines from the serial input and runs them. ProcessPending never blocks,
// so it is called from the main loop and from every poll slice of a running sequence. A sequence is
// started from inside ProcessPending, so calls nest: the line being run is always taken out of the
// buffer first
type Dispatcher struct {
	ctx   context.Context
	in    Input
	out   io.Writer
	dev   Devices
	cmds  map[string]*Command
	order []*Command
	line  []byte
}

var _ feeder.Dispatcher = (*Dispatcher)(nil)

func New(ctx context.Context, in Input, out io.Writer, dev Devices) *Dispatcher {
	d := &Dispatcher{
		ctx:   ctx,
		in:    in,
		out:   out,
		dev:   dev,
		cmds:  map[string]*Command{},
		order: commands,
	}
	for _, cmd := range commands {
		d.cmds[cmd.Name] = cmd
	}
	return d
}

// ProcessPending runs every complete line that is already buffered
func (d *Dispatcher) ProcessPending(mode feeder.DispatchMode) {
	for d.in.Buffered() > 0 {
		b, err := d.in.ReadByte()
		if err != nil {
			return
		}

		switch b {
		case '\r':
			continue
		case '\n':
		default:
			if len(d.line) < maxLineLength {
				d.line = append(d.line, b)
			}
			continue
		}

		line := string(d.line)
		d.line = d.line[:0]
		if strings.TrimSpace(line) == "" {
			continue
		}

		err = d.Execute(line, mode)
		if err != nil {
			d.println("error: " + err.Error())
		}
	}
}

// Run processes commands until the context is done
func (d *Dispatcher) Run(tick func()) {
	for d.ctx.Err() == nil {
		d.ProcessPending(feeder.DispatchAll)
		if tick != nil {
			tick()
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Execute runs a single command line like "[control]:feeder:start:50,6"
func (d *Dispatcher) Execute(line string, mode feeder.DispatchMode) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, autofeed.CommandPrefix) {
		return errors.New("invalid command format: " + line)
	}

	name, arg := splitCommand(strings.TrimPrefix(line, autofeed.CommandPrefix))
	cmd, ok := d.cmds[name]
	if !ok {
		return errors.New("unknown command: " + name)
	}

	if mode == feeder.DispatchStopOnly && !cmd.Limited {
		return busyError{name, "ignored while waiting for weight"}
	}
	if cmd.Exclusive && d.dev.Feeder.Status().Active {
		return busyError{name, "refused while a sequence is active"}
	}

	return cmd.Run(d, arg)
}

func (d *Dispatcher) println(s string) {
	_, _ = io.WriteString(d.out, s+"\r\n")
}

// splitCommand splits "group:action:arg" into "group:action" and "arg"
func splitCommand(in string) (string, string) {
	parts := strings.SplitN(in, ":", 3)
	name := parts[0]
	if len(parts) > 1 {
		name += ":" + parts[1]
	}
	if len(parts) > 2 {
		return name, parts[2]
	}
	return name, ""
}

// parseStart reads "<doseGrams>,<motorSeconds>[,<blowerSeconds>]". The blower runs as long as the
// motor unless it is given
func parseStart(arg string, defaults feeder.Params) (feeder.Params, error) {
	fields := strings.Split(arg, ",")
	if len(fields) < 2 || len(fields) > 3 {
		return feeder.Params{}, errors.New("expected <doseGrams>,<motorSeconds>[,<blowerSeconds>]: " + arg)
	}

	dose, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 32)
	if err != nil {
		return feeder.Params{}, errors.New("invalid dose: " + err.Error())
	}
	if math.IsNaN(dose) || math.IsInf(dose, 0) {
		return feeder.Params{}, errors.New("invalid dose: must be a finite number")
	}

	motor, err := parseSeconds(fields[1])
	if err != nil {
		return feeder.Params{}, errors.New("invalid motor duration: " + err.Error())
	}

	blower := motor
	if len(fields) == 3 {
		blower, err = parseSeconds(fields[2])
		if err != nil {
			return feeder.Params{}, errors.New("invalid blower duration: " + err.Error())
		}
	}

	p := defaults
	p.TargetGrams = float32(dose)
	p.Motor = motor
	p.Blower = blower
	return p, nil
}

func parseSeconds(in string) (time.Duration, error) {
	s, err := strconv.ParseFloat(strings.TrimSpace(in), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, errors.New("must be a finite number")
	}
	if math.Abs(s) > maxSeconds {
		return 0, errors.New("out of range: " + strings.TrimSpace(in))
	}
	return time.Duration(s * float64(time.Second)), nil
}

// maxSeconds is the longest duration a time.Duration can hold, in whole seconds
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

func statusLine(s feeder.Status) string {
	out := "STATUS state=" + s.State.String() + " active=" + strconv.FormatBool(s.Active)
	if s.Last != nil {
		out += " last=" + s.Last.Status.String()
		if s.Last.Err != nil {
			out += " reason=\"" + s.Last.Err.Error() + "\""
		}
	}
	return out
}
