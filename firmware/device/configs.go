package device

import (
	"machine"
	"time"
)

// HBridgeConfig has the pins of one L298N/L293 channel
type HBridgeConfig struct {
	In1    machine.Pin
	In2    machine.Pin
	Enable machine.Pin
}

// RelayConfig has the pin of a relay module. Most modules switch on when the input is pulled low
type RelayConfig struct {
	Pin       machine.Pin
	ActiveLow bool
}

// LoadCellConfig configures the HX711 amplifier under the hopper
type LoadCellConfig struct {
	Data  machine.Pin
	Clock machine.Pin
	// Scale is raw counts per gram
	Scale float32
	// Samples are averaged for every reading. The feeder polls the scale once per feeder.PollInterval,
	// so Samples is capped to the conversions that fit in one poll: 1 at 10 samples/s, 8 at 80 samples/s
	Samples int
	// FastRate is set when the HX711 RATE pin is tied high for 80 samples/s. The default is 10 samples/s
	FastRate bool
	// TareOnStart zeroes the scale when the Device is created
	TareOnStart bool
}

// TimingConfig has delays that depend on the motors
type TimingConfig struct {
	// ReverseDelay is how long the auger is stopped before it changes direction
	ReverseDelay time.Duration
	// ReadyTimeout is how long to wait for the HX711 to have a conversion ready
	ReadyTimeout time.Duration
}

// Config is everything needed to create a Device
type Config struct {
	Actuator HBridgeConfig
	Auger    HBridgeConfig
	Blower   RelayConfig
	LoadCell LoadCellConfig
	Timing   TimingConfig
	Verbose  bool
}
