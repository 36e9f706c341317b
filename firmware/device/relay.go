package device

import "machine"

// Relay switches the blower
type Relay struct {
	pin       machine.Pin
	activeLow bool
	on        bool
	log       func(...string)
}

func newRelay(cfg RelayConfig, log func(...string)) *Relay {
	cfg.Pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r := &Relay{pin: cfg.Pin, activeLow: cfg.ActiveLow, log: log}
	r.set(false)
	return r
}

func (r *Relay) Start() {
	r.set(true)
	r.log("blower on")
}

func (r *Relay) Stop() {
	if r.on {
		r.log("blower off")
	}
	r.set(false)
}

func (r *Relay) On() bool {
	return r.on
}

func (r *Relay) set(on bool) {
	r.on = on
	r.pin.Set(on != r.activeLow)
}
