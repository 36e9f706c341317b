package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/calvinmclean/autofeed"
	"github.com/calvinmclean/autofeed/internal/log"
	"github.com/calvinmclean/autofeed/sim"
	"github.com/calvinmclean/autofeed/twchart"
)

var ErrUnknownProfile = errors.New("unknown profile")

// Controller is the host side of a feeder. It sends commands over the serial link, follows the
// status lines that come back, records sessions in TWChart and exposes metrics
type Controller struct {
	cfg      Config
	link     io.ReadWriteCloser
	profiles Profiles
	session  *sessionRecorder
	metrics  *metrics
	registry *prometheus.Registry
	log      zerolog.Logger

	writeMtx sync.Mutex
	wg       sync.WaitGroup

	statusMtx sync.RWMutex
	status    Status
}

// Status is what the host knows about the feeder from the lines it printed
type Status struct {
	State       string    `json:"state"`
	Active      bool      `json:"active"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	Warnings    int       `json:"warnings"`
	HopperGrams *float64  `json:"hopper_grams,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewFromEnv creates a Controller from environment variables
func NewFromEnv() (*Controller, error) {
	return New(ConfigFromEnv())
}

// New opens the serial port, or starts the simulator, and creates a Controller
func New(cfg Config) (*Controller, error) {
	profiles := DefaultProfiles()
	if cfg.ProfilesFile != "" {
		var err error
		profiles, err = LoadProfilesFile(cfg.ProfilesFile)
		if err != nil {
			return nil, err
		}
	}

	var client twchartClient = noopTWChartClient{}
	var probes twchart.Probes
	if cfg.TWChartAddr != "" {
		client = twchart.NewClient(cfg.TWChartAddr)
		if cfg.ProbesInput != "" {
			var err error
			probes, err = twchart.ParseProbes(cfg.ProbesInput)
			if err != nil {
				return nil, fmt.Errorf("error parsing probes: %w", err)
			}
		}
	}

	var link io.ReadWriteCloser
	if cfg.Simulate || cfg.SerialPort == SerialPortNone {
		l, err := sim.NewLink(sim.Config{Hopper: sim.DefaultHopperConfig()}, log.WithComponent("sim"))
		if err != nil {
			return nil, fmt.Errorf("error starting simulator: %w", err)
		}
		link = l
	} else {
		baudRate, err := cfg.baudRate()
		if err != nil {
			return nil, fmt.Errorf("invalid baud rate: %w", err)
		}
		link, err = openSerial(cfg.SerialPort, baudRate)
		if err != nil {
			return nil, err
		}
	}

	c := newController(cfg, link, profiles, client)
	c.session.probes = probes
	return c, nil
}

func newController(cfg Config, link io.ReadWriteCloser, profiles Profiles, client twchartClient) *Controller {
	logger := log.WithComponent("controller")
	registry := prometheus.NewRegistry()

	return &Controller{
		cfg:      cfg,
		link:     link,
		profiles: profiles,
		session: &sessionRecorder{
			client: client,
			name:   cfg.sessionName(),
			log:    logger,
			now:    time.Now,
		},
		metrics:  newMetrics(registry),
		registry: registry,
		log:      logger,
		status:   Status{State: autofeed.StateIdle.String()},
	}
}

// Run forwards input lines to the feeder and feeder output to out until the context is done or the
// link fails. Input can be firmware commands or the shortcuts listed by the "help" input.
// A read from in cannot be interrupted, so the goroutine reading it outlives Run until in returns
// EOF or an error. Close the reader, or pass one that ends, to release it
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out = &syncWriter{w: out}

	linkErr := make(chan error, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		linkErr <- c.readLink(out)
	}()

	if c.cfg.MetricsAddr != "" {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			err := c.serveHTTP(ctx, c.cfg.MetricsAddr)
			if err != nil {
				c.log.Error().Err(err).Msg("error serving HTTP")
			}
		}()
	}

	input := make(chan string)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case input <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-linkErr:
			return err
		case line, ok := <-input:
			if !ok {
				// keep following the feeder after the input ends
				input = nil
				continue
			}

			cmd, err := c.translate(line)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			if cmd == "" {
				continue
			}

			err = c.Send(cmd)
			if err != nil {
				return err
			}
		}
	}
}

// Close closes the link and waits for the link and HTTP goroutines that Run started. It does not
// wait for the input reader, which ends with its reader
func (c *Controller) Close() error {
	err := c.link.Close()
	c.wg.Wait()
	return err
}

// Send writes a single command line to the feeder
func (c *Controller) Send(cmd string) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	c.log.Debug().Str("command", cmd).Msg("sending command")
	_, err := io.WriteString(c.link, cmd+"\n")
	if err != nil {
		return fmt.Errorf("error writing to feeder: %w", err)
	}
	return nil
}

// Feed starts the named profile
func (c *Controller) Feed(name string) error {
	p, ok := c.profiles.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	c.log.Info().Str("profile", p.Name).Float32("grams", p.Grams).Msg("starting feeding")
	return c.Send(p.Command())
}

// Stop asks the feeder to stop the running sequence
func (c *Controller) Stop() error {
	return c.Send(autofeed.CommandPrefix + "feeder:stop")
}

func (c *Controller) Profiles() Profiles {
	return c.profiles
}

func (c *Controller) Status() Status {
	c.statusMtx.RLock()
	defer c.statusMtx.RUnlock()
	return c.status
}

func (c *Controller) readLink(out io.Writer) error {
	scanner := bufio.NewScanner(c.link)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		fmt.Fprintln(out, line)
		c.handleLine(line)
	}

	err := scanner.Err()
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("error reading from feeder: %w", err)
	}
	return nil
}

func (c *Controller) handleLine(line string) {
	if status, ok := autofeed.ParseStatusLine(line); ok {
		c.metrics.observe(status)
		c.session.record(status)
		c.updateStatus(status)
		return
	}

	if grams, ok := parseTelemetryWeight(line); ok {
		c.metrics.linkLines.WithLabelValues("telemetry").Inc()
		c.metrics.hopperGrams.Set(grams)
		c.statusMtx.Lock()
		c.status.HopperGrams = &grams
		c.statusMtx.Unlock()
		return
	}

	c.metrics.linkLines.WithLabelValues("other").Inc()
}

func (c *Controller) updateStatus(line autofeed.StatusLine) {
	c.statusMtx.Lock()
	defer c.statusMtx.Unlock()

	c.status.UpdatedAt = time.Now()
	if line.Kind == autofeed.KindRejected {
		c.status.LastOutcome = string(line.Kind)
		c.status.LastMessage = line.Message
		return
	}

	c.status.State = line.State.String()
	switch {
	case line.Kind == autofeed.KindStage:
		c.status.Active = true
	case line.Kind == autofeed.KindWarning:
		c.status.Warnings++
	case line.Kind.Terminal():
		c.status.Active = false
		c.status.LastOutcome = string(line.Kind)
		c.status.LastMessage = line.Message
	}

	level := zerolog.InfoLevel
	if line.Kind == autofeed.KindWarning || line.Kind == autofeed.KindAborted {
		level = zerolog.WarnLevel
	}
	c.log.WithLevel(level).Str("state", line.State.String()).Str("kind", string(line.Kind)).Msg(line.Message)
}

// translate turns an input line into a firmware command. Lines that already are commands are
// passed through
func (c *Controller) translate(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, autofeed.CommandPrefix) {
		return line, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "feed":
		if len(fields) != 2 {
			return "", errors.New("usage: feed <profile>")
		}
		p, ok := c.profiles.Get(fields[1])
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownProfile, fields[1])
		}
		return p.Command(), nil
	case "stop":
		return autofeed.CommandPrefix + "feeder:stop", nil
	case "status":
		return autofeed.CommandPrefix + "feeder:status", nil
	case "help":
		return autofeed.CommandPrefix + "help", nil
	}

	return "", fmt.Errorf("unknown input %q, use feed <profile>, stop, status, help or a %s command", line, autofeed.CommandPrefix)
}

// parseTelemetryWeight reads the weight from a line like "SENSORS weight=1520.3g"
func parseTelemetryWeight(line string) (float64, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "SENSORS" {
		return 0, false
	}

	for _, field := range fields[1:] {
		value, ok := strings.CutPrefix(field, "weight=")
		if !ok {
			continue
		}
		grams, err := strconv.ParseFloat(strings.TrimSuffix(value, "g"), 64)
		if err != nil {
			return 0, false
		}
		return grams, true
	}

	return 0, false
}

type syncWriter struct {
	mtx sync.Mutex
	w   io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.w.Write(p)
}
