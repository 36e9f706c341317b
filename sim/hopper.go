package sim

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinmclean/autofeed/feeder"
)

// HopperConfig describes the simulated hopper
type HopperConfig struct {
	InitialGrams float32 `yaml:"initial_grams"`
	// GateFlow is how fast feed falls out while the gate is open, in grams per second
	GateFlow float32 `yaml:"gate_flow"`
	// AugerFlow is how fast the auger moves feed out while it runs forward, in grams per second
	AugerFlow float32 `yaml:"auger_flow"`
}

// DefaultHopperConfig is a full hopper that drops a medium dose in about 12 seconds
func DefaultHopperConfig() HopperConfig {
	return HopperConfig{
		InitialGrams: 2000,
		GateFlow:     8,
		AugerFlow:    15,
	}
}

// Hopper simulates the feeder hardware. Its load cell loses mass while the gate is open or the auger
// runs forward. Mass is integrated lazily from the clock whenever something changes or is read
type Hopper struct {
	mu    sync.Mutex
	clock feeder.Clock
	cfg   HopperConfig
	log   zerolog.Logger

	grams    float32
	last     time.Time
	gateOpen bool
	auger    int
	blower   bool
}

// Snapshot is the simulated hardware state
type Snapshot struct {
	Grams    float32
	GateOpen bool
	// Auger is 1 forward, -1 reverse, 0 stopped
	Auger  int
	Blower bool
}

func NewHopper(clock feeder.Clock, cfg HopperConfig, log zerolog.Logger) *Hopper {
	return &Hopper{
		clock: clock,
		cfg:   cfg,
		log:   log,
		grams: cfg.InitialGrams,
		last:  clock.Now(),
	}
}

// advance must be called with mu held
func (h *Hopper) advance() {
	now := h.clock.Now()
	dt := float32(now.Sub(h.last).Seconds())
	h.last = now
	if dt <= 0 {
		return
	}

	var rate float32
	if h.gateOpen {
		rate += h.cfg.GateFlow
	}
	if h.auger > 0 {
		rate += h.cfg.AugerFlow
	}

	h.grams -= rate * dt
	if h.grams < 0 {
		h.grams = 0
	}
}

func (h *Hopper) update(msg string, f func()) {
	h.mu.Lock()
	h.advance()
	f()
	h.mu.Unlock()
	h.log.Debug().Str("peripheral", msg).Msg("simulated peripheral changed")
}

func (h *Hopper) ReadGrams() float32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.advance()
	return h.grams
}

// Refill sets the hopper contents
func (h *Hopper) Refill(grams float32) {
	h.update("refill", func() { h.grams = grams })
}

func (h *Hopper) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.advance()
	return Snapshot{
		Grams:    h.grams,
		GateOpen: h.gateOpen,
		Auger:    h.auger,
		Blower:   h.blower,
	}
}

// Actuator is the gate. Extending opens it and it stays open until retracted
func (h *Hopper) Actuator() feeder.Actuator {
	return gate{h}
}

func (h *Hopper) Motor() feeder.DosingMotor {
	return auger{h}
}

func (h *Hopper) Blower() feeder.Blower {
	return blower{h}
}

type gate struct{ h *Hopper }

func (g gate) Extend()  { g.h.update("gate extend", func() { g.h.gateOpen = true }) }
func (g gate) Retract() { g.h.update("gate retract", func() { g.h.gateOpen = false }) }
func (g gate) Stop()    {}

type auger struct{ h *Hopper }

func (a auger) Forward() { a.h.update("auger forward", func() { a.h.auger = 1 }) }
func (a auger) Reverse() { a.h.update("auger reverse", func() { a.h.auger = -1 }) }
func (a auger) Stop()    { a.h.update("auger stop", func() { a.h.auger = 0 }) }

type blower struct{ h *Hopper }

func (b blower) Start() { b.h.update("blower on", func() { b.h.blower = true }) }
func (b blower) Stop()  { b.h.update("blower off", func() { b.h.blower = false }) }
