package device

import (
	"time"

	"tinygo.org/x/drivers/l293x"
)

type direction int

const (
	stopped direction = iota
	forward
	backward
)

// Motor is a DC motor on one H-bridge channel. It is used for the gate actuator (forward extends) and
// for the auger
type Motor struct {
	name         string
	dev          l293x.Device
	dir          direction
	reverseDelay time.Duration
	log          func(...string)
}

func newMotor(name string, cfg HBridgeConfig, reverseDelay time.Duration, log func(...string)) *Motor {
	dev := l293x.New(cfg.In1, cfg.In2, cfg.Enable)
	dev.Configure()
	dev.Stop()

	return &Motor{
		name:         name,
		dev:          dev,
		reverseDelay: reverseDelay,
		log:          log,
	}
}

// Forward runs the motor forward
func (m *Motor) Forward() {
	m.run(forward)
}

// Reverse runs the motor backward
func (m *Motor) Reverse() {
	m.run(backward)
}

// Extend is Forward for the gate actuator
func (m *Motor) Extend() {
	m.run(forward)
}

// Retract is Reverse for the gate actuator
func (m *Motor) Retract() {
	m.run(backward)
}

// Stop brakes the motor. It is safe to call at any time
func (m *Motor) Stop() {
	m.dev.Stop()
	if m.dir != stopped {
		m.log(m.name, "stopped")
	}
	m.dir = stopped
}

// run switches direction. The motor is stopped for reverseDelay before it turns the other way
func (m *Motor) run(dir direction) {
	if m.dir == dir {
		return
	}
	if m.dir != stopped && m.reverseDelay > 0 {
		m.dev.Stop()
		time.Sleep(m.reverseDelay)
	}

	switch dir {
	case forward:
		m.dev.Forward()
		m.log(m.name, "forward")
	case backward:
		m.dev.Backward()
		m.log(m.name, "backward")
	}
	m.dir = dir
}

// Running is true while the motor is driven in either direction
func (m *Motor) Running() bool {
	return m.dir != stopped
}
