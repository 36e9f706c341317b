package telemetry

import (
	"io"
	"strconv"
	"time"
)

// DefaultInterval matches the sensor output interval of the feeder's sensor service
const DefaultInterval = 10 * time.Second

// Source is a single sensor reading included in the periodic report
type Source struct {
	Name string
	Unit string
	Read func() (float32, bool)
}

// Service prints a line with every source's value each interval. It is driven by Tick from the main
// loop, and it can be paused while something else needs the sensors and the serial line
type Service struct {
	interval time.Duration
	sources  []Source
	out      io.Writer

	enabled bool
	paused  bool
	last    time.Time
}

// New creates an enabled Service
func New(out io.Writer, interval time.Duration, sources ...Source) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		interval: interval,
		sources:  sources,
		out:      out,
		enabled:  true,
	}
}

// Active is true when the service is enabled and not paused
func (s *Service) Active() bool {
	return s.enabled && !s.paused
}

// Pause stops reporting until Resume
func (s *Service) Pause() {
	s.paused = true
}

// Resume undoes Pause. It does not enable a disabled service
func (s *Service) Resume() {
	s.paused = false
}

// Enable turns periodic reporting on or off
func (s *Service) Enable(on bool) {
	s.enabled = on
}

// Tick reports if the service is active and an interval has passed since the last report
func (s *Service) Tick(now time.Time) bool {
	if !s.Active() {
		return false
	}
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now

	_, _ = io.WriteString(s.out, s.Line()+"\r\n")
	return true
}

// Line formats the current readings: "SENSORS weight=1234.5g temp=err"
func (s *Service) Line() string {
	line := "SENSORS"
	for _, src := range s.sources {
		line += " " + src.Name + "="
		v, ok := src.Read()
		if !ok {
			line += "err"
			continue
		}
		line += strconv.FormatFloat(float64(v), 'f', 1, 32) + src.Unit
	}
	return line
}
