//go:build rp2040 || rp2350

// Package rp2 runs the node on a Raspberry Pi Pico with a Waveshare 4.2"
// e-paper module on SPI1 and the SCD41 on I2C0.
package rp2

import (
	"machine"
	"time"

	logger "github.com/d2r2/go-logger"
	"tinygo.org/x/drivers/waveshare-epd/epd4in2"

	"airnode-go/services/calib"
	"airnode-go/services/config"
	"airnode-go/services/node"
	"airnode-go/services/retained"
	"airnode-go/types"
)

var lg = logger.NewPackageLogger("board", logger.InfoLevel)

// usbPoll is how often the USB-sense pin is sampled while sleeping.
const usbPoll = 100 * time.Millisecond

// Pins is the wiring. Numbers are GP numbers.
type Pins struct {
	SDA, SCL               machine.Pin
	SCK, SDO               machine.Pin
	CS, DC, RST, Busy      machine.Pin
	BatterySense, USBSense machine.Pin
}

// DefaultPins matches the Pico-ePaper-4.2 HAT with the sensor on GP4/GP5,
// the battery divider on GP26 and VBUS sense on GP24.
var DefaultPins = Pins{
	SDA: machine.GP4, SCL: machine.GP5,
	SCK: machine.GP10, SDO: machine.GP11,
	CS: machine.GP9, DC: machine.GP8, RST: machine.GP12, Busy: machine.GP13,
	BatterySense: machine.GP26, USBSense: machine.GP24,
}

type adc struct{ a machine.ADC }

// ReadPinMillivolts implements power.ADC against the 3.3 V reference.
func (a adc) ReadPinMillivolts() (uint32, error) {
	return uint32(a.a.Get()) * 3300 / 0xffff, nil
}

type uptime struct{ boot time.Time }

// Now has no wall-clock source; it counts from the epoch so the clock field
// shows uptime.
func (u uptime) Now() time.Time { return time.Unix(0, 0).UTC().Add(time.Since(u.boot)) }

// Board owns the Pico peripherals.
type Board struct {
	usb  machine.Pin
	Node *node.Node

	resumed bool
	edge    bool
}

func Open(cfg config.Config, pins Pins) (*Board, error) {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{Frequency: 100 * machine.KHz, SDA: pins.SDA, SCL: pins.SCL}); err != nil {
		return nil, err
	}
	spi := machine.SPI1
	if err := spi.Configure(machine.SPIConfig{Frequency: 4 * machine.MHz, SCK: pins.SCK, SDO: pins.SDO}); err != nil {
		return nil, err
	}
	epd := epd4in2.New(spi, pins.CS, pins.DC, pins.RST, pins.Busy)
	panel := newPanel(&epd, epd4in2.Config{Width: cfg.Display.Width, Height: cfg.Display.Height})

	machine.InitADC()
	bat := machine.ADC{Pin: pins.BatterySense}
	if err := bat.Configure(machine.ADCConfig{}); err != nil {
		return nil, err
	}

	pins.USBSense.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	b := &Board{usb: pins.USBSense}

	n, err := node.Assemble(cfg, node.Parts{
		I2C:      i2c,
		Panel:    panel,
		Radio:    newRadio(cfg),
		Battery:  adc{bat},
		USB:      b,
		Clock:    uptime{boot: time.Now()},
		Retained: &retained.MemStore{},
		Calib:    calib.NewBlockStore(machine.Flash, 0),
		Sleeper:  b,
	})
	if err != nil {
		return nil, err
	}
	b.Node = n
	return b, nil
}

func (b *Board) USBConnected() bool { return b.usb.Get() }

func (b *Board) Wake() types.Wake {
	return b.Node.Wake(b.resumed, b.edge)
}

// Sleep implements cycle.Sleeper. The RP2040 keeps RAM through this sleep,
// so retained state lives in a MemStore.
func (b *Board) Sleep(plan types.SleepPlan) {
	b.resumed, b.edge = true, false
	want := plan.EdgeLevel == types.High
	deadline := time.Now().Add(plan.Duration)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return
		}
		if plan.EdgeWake && b.usb.Get() == want {
			b.edge = true
			lg.Infof("usb edge to %s", plan.EdgeLevel)
			return
		}
		time.Sleep(min(usbPoll, left))
	}
}

// Boot runs one cycle.
func (b *Board) Boot() (types.PersistedState, types.SleepPlan) {
	return b.Node.Boot(b.Wake())
}
