package device

import (
	"errors"
	"machine"
	"time"

	"github.com/calvinmclean/autofeed"
)

// Device is the feeder hardware: gate actuator, auger, blower relay, load cell and the serial line
type Device struct {
	Actuator *Motor
	Auger    *Motor
	Blower   *Relay
	Scale    *LoadCell

	bootTime time.Time
	verbose  bool
}

// New configures every peripheral and leaves them all stopped
func New(cfg Config) (*Device, error) {
	d := &Device{
		bootTime: time.Now(),
		verbose:  cfg.Verbose,
	}

	scale, err := newLoadCell(cfg.LoadCell, cfg.Timing.ReadyTimeout)
	if err != nil {
		return nil, errors.New("error creating load cell: " + err.Error())
	}
	if cfg.LoadCell.TareOnStart {
		err = scale.Tare()
		if err != nil {
			return nil, err
		}
	}

	d.Scale = scale
	d.Actuator = newMotor("actuator", cfg.Actuator, 0, d.debug)
	d.Auger = newMotor("auger", cfg.Auger, cfg.Timing.ReverseDelay, d.debug)
	d.Blower = newRelay(cfg.Blower, d.debug)

	println(d.ts(), "device ready")

	return d, nil
}

// StopAll switches every peripheral off
func (d *Device) StopAll() {
	d.Actuator.Stop()
	d.Auger.Stop()
	d.Blower.Stop()
}

// Report prints feeder progress as a status line the host can parse
func (d *Device) Report(line autofeed.StatusLine) {
	println(line.String())
	if d.verbose {
		println(d.ts(), "state", line.State.String())
	}
}

func (d *Device) debug(msg ...string) {
	if !d.verbose {
		return
	}
	out := d.ts()
	for _, m := range msg {
		out += " " + m
	}
	println(out)
}

// ts returns the duration since boot for logging
func (d *Device) ts() string {
	return "[" + time.Since(d.bootTime).Truncate(time.Millisecond).String() + "]"
}

func (d *Device) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

func (d *Device) Buffered() int {
	return machine.Serial.Buffered()
}

func (d *Device) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
