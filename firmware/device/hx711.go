package device

import (
	"errors"
	"machine"
	"math"
	"time"

	"github.com/calvinmclean/autofeed/feeder"
)

const (
	// pulses after the 24 data bits select channel A with gain 128 for the next conversion
	gainPulses = 1

	defaultReadyTimeout = 200 * time.Millisecond

	slowConversion = 100 * time.Millisecond
	fastConversion = 12500 * time.Microsecond
)

var errNotReady = errors.New("hx711 not ready")

// LoadCell reads an HX711 load cell amplifier by bit-banging its two-wire interface
type LoadCell struct {
	data    machine.Pin
	clock   machine.Pin
	scale   float32
	offset  int32
	samples int
	timeout time.Duration
}

func newLoadCell(cfg LoadCellConfig, timeout time.Duration) (*LoadCell, error) {
	if cfg.Scale == 0 {
		return nil, errors.New("load cell scale must not be zero")
	}
	cfg.Samples = samplesPerPoll(cfg.Samples, cfg.FastRate)
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}

	cfg.Data.Configure(machine.PinConfig{Mode: machine.PinInput})
	cfg.Clock.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cfg.Clock.Low()

	return &LoadCell{
		data:    cfg.Data,
		clock:   cfg.Clock,
		scale:   cfg.Scale,
		samples: cfg.Samples,
		timeout: timeout,
	}, nil
}

// ReadGrams returns the averaged weight. It is NaN when the amplifier does not answer
func (l *LoadCell) ReadGrams() float32 {
	raw, err := l.average(l.samples)
	if err != nil {
		return float32(math.NaN())
	}
	return float32(raw-float64(l.offset)) / l.scale
}

// Tare makes the current load read as zero
func (l *LoadCell) Tare() error {
	raw, err := l.average(10)
	if err != nil {
		return errors.New("error taring load cell: " + err.Error())
	}
	l.offset = int32(math.Round(raw))
	return nil
}

func (l *LoadCell) average(n int) (float64, error) {
	var sum float64
	for range n {
		v, err := l.read()
		if err != nil {
			return 0, err
		}
		sum += float64(v)
	}
	return sum / float64(n), nil
}

// read clocks out one 24-bit two's complement conversion
func (l *LoadCell) read() (int32, error) {
	deadline := time.Now().Add(l.timeout)
	for l.data.Get() {
		if time.Now().After(deadline) {
			return 0, errNotReady
		}
		time.Sleep(time.Millisecond)
	}

	var v uint32
	for range 24 {
		l.pulse()
		v <<= 1
		if l.data.Get() {
			v |= 1
		}
	}
	for range gainPulses {
		l.pulse()
	}

	// sign extend
	if v&0x800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v), nil
}

func (l *LoadCell) pulse() {
	l.clock.High()
	time.Sleep(time.Microsecond)
	l.clock.Low()
	time.Sleep(time.Microsecond)
}

// samplesPerPoll limits averaging so one reading never takes longer than a feeder poll slice
func samplesPerPoll(samples int, fast bool) int {
	conversion := slowConversion
	if fast {
		conversion = fastConversion
	}
	limit := max(int(feeder.PollInterval/conversion), 1)
	if samples <= 0 || samples > limit {
		return limit
	}
	return samples
}
