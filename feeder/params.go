package feeder

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrSequenceActive is returned when a start is requested while a sequence is running
	ErrSequenceActive = errors.New("feeder sequence already active")
	// ErrInvalidParams wraps every Params validation failure
	ErrInvalidParams = errors.New("invalid feeder parameters")
	// ErrStopped is the abort reason when a stop was requested
	ErrStopped = errors.New("stopped by request")
	// ErrWeightTimeout is the abort reason for a weight timeout under AbortOnTimeout
	ErrWeightTimeout = errors.New("weight target not reached before timeout")
)

// Params describe one feeding sequence. They are fixed once the sequence starts
type Params struct {
	// TargetGrams is the mass the hopper is expected to lose while the gate is open
	TargetGrams float32
	// ToleranceGrams is subtracted from the target, so a slight undershoot still counts as reached
	ToleranceGrams float32

	Extend  time.Duration
	Retract time.Duration
	// Settle is a short pause after the gate closes and before dosing begins
	Settle time.Duration
	Motor  time.Duration
	Blower time.Duration

	// MaxWeightWait bounds the weight monitor so a faulty load cell cannot stall a sequence
	MaxWeightWait time.Duration
}

// DefaultParams returns the values used for anything a start command does not specify
func DefaultParams() Params {
	return Params{
		TargetGrams:    100,
		ToleranceGrams: 5,
		Extend:         5 * time.Second,
		Retract:        5 * time.Second,
		Settle:         500 * time.Millisecond,
		Motor:          6 * time.Second,
		Blower:         5 * time.Second,
		MaxWeightWait:  30 * time.Second,
	}
}

// Validate checks the parameters before a sequence is started
func (p Params) Validate() error {
	switch {
	case math.IsNaN(float64(p.TargetGrams)) || p.TargetGrams <= 0:
		return invalid("target must be greater than zero")
	case math.IsInf(float64(p.TargetGrams), 0):
		return invalid("target must be finite")
	case math.IsNaN(float64(p.ToleranceGrams)) || p.ToleranceGrams < 0:
		return invalid("tolerance must not be negative")
	case p.ToleranceGrams >= p.TargetGrams:
		return invalid("tolerance must be smaller than target")
	case p.Extend < 0 || p.Retract < 0 || p.Settle < 0 || p.Motor < 0 || p.Blower < 0:
		return invalid("durations must not be negative")
	case p.MaxWeightWait <= 0:
		return invalid("max weight wait must be greater than zero")
	}
	return nil
}

type paramsError struct {
	msg string
}

func invalid(msg string) error {
	return paramsError{msg}
}

func (e paramsError) Error() string {
	return ErrInvalidParams.Error() + ": " + e.msg
}

func (e paramsError) Unwrap() error {
	return ErrInvalidParams
}

// Preset is a named dose size
type Preset struct {
	Name  string
	Grams float32
}

// Presets are the standard dose sizes selectable from the command line
var Presets = []Preset{
	{"small", 50},
	{"medium", 100},
	{"large", 200},
}

// LookupPreset finds a preset by name
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
