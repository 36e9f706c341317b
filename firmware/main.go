package main

import (
	"context"
	"machine"
	"math"
	"time"

	"github.com/calvinmclean/autofeed/feeder"
	"github.com/calvinmclean/autofeed/firmware/commands"
	"github.com/calvinmclean/autofeed/firmware/device"
	"github.com/calvinmclean/autofeed/firmware/telemetry"
)

func main() {
	cfg := device.Config{
		Actuator: device.HBridgeConfig{
			In1:    machine.GP12,
			In2:    machine.GP13,
			Enable: machine.GP11,
		},
		Auger: device.HBridgeConfig{
			In1:    machine.GP9,
			In2:    machine.GP10,
			Enable: machine.GP8,
		},
		Blower: device.RelayConfig{
			Pin:       machine.GP16,
			ActiveLow: true,
		},
		LoadCell: device.LoadCellConfig{
			Data:        machine.GP26,
			Clock:       machine.GP27,
			Scale:       -21.5,
			Samples:     1,
			TareOnStart: true,
		},
		Timing: device.TimingConfig{
			ReverseDelay: 150 * time.Millisecond,
			ReadyTimeout: 200 * time.Millisecond,
		},
	}

	d, err := device.New(cfg)
	if err != nil {
		panic(err)
	}

	tel := telemetry.New(d, telemetry.DefaultInterval, telemetry.Source{
		Name: "weight",
		Unit: "g",
		Read: func() (float32, bool) {
			g := d.Scale.ReadGrams()
			return g, !math.IsNaN(float64(g))
		},
	}, telemetry.Source{
		Name: "auger",
		Read: func() (float32, bool) {
			if d.Auger.Running() {
				return 1, true
			}
			return 0, true
		},
	})

	f, err := feeder.New(feeder.Config{
		Actuator:  d.Actuator,
		Motor:     d.Auger,
		Blower:    d.Blower,
		Scale:     d.Scale,
		Telemetry: tel,
		Reporter:  d,
	})
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	cmds := commands.New(ctx, d, d, commands.Devices{
		Feeder:    f,
		Actuator:  d.Actuator,
		Motor:     d.Auger,
		Blower:    d.Blower,
		Telemetry: tel,
		Defaults:  feeder.DefaultParams(),
	})
	f.SetDispatcher(pump{cmds, tel})

	d.StopAll()
	cmds.Run(func() {
		tel.Tick(time.Now())
	})
}

// pump keeps commands and telemetry going while a sequence is waiting
type pump struct {
	cmds *commands.Dispatcher
	tel  *telemetry.Service
}

func (p pump) ProcessPending(mode feeder.DispatchMode) {
	p.cmds.ProcessPending(mode)
	p.tel.Tick(time.Now())
}
