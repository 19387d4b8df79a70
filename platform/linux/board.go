//go:build linux

// Package linux runs the node on a Linux single-board computer: the SCD41
// on an i2c-dev bus, a GPIO for USB sense, an IIO ADC channel for the
// battery, BlueZ for the radio and files for retained and calibration
// storage. Deep sleep becomes a blocking wait on the USB pin with a timeout.
package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	logger "github.com/d2r2/go-logger"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"airnode-go/platform/ble"
	"airnode-go/platform/fb"
	"airnode-go/services/calib"
	"airnode-go/services/config"
	"airnode-go/services/node"
	"airnode-go/services/retained"
	"airnode-go/types"
)

var lg = logger.NewPackageLogger("board", logger.InfoLevel)

// Options name the host resources. Empty I2CBus selects the first bus;
// empty USBPin or ADCDir leave the capability out.
type Options struct {
	I2CBus   string
	USBPin   string // e.g. GPIO17
	ADCDir   string
	ADCChan  int
	StateDir string
	PNGPath  string // panel snapshot after each cycle, optional
	NoRadio  bool
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Board owns the host resources for one node.
type Board struct {
	opts  Options
	bus   i2c.BusCloser
	usb   gpio.PinIn
	panel *fb.Panel

	Node *node.Node

	resumed bool
	edge    bool
}

// Open initialises periph, opens every resource and assembles the node.
func Open(cfg config.Config, opts Options) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	bus, err := i2creg.Open(opts.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", opts.I2CBus, err)
	}
	b := &Board{opts: opts, bus: bus, panel: fb.New(cfg.Display.Width, cfg.Display.Height)}

	if opts.USBPin != "" {
		p := gpioreg.ByName(opts.USBPin)
		if p == nil {
			_ = bus.Close()
			return nil, fmt.Errorf("gpio %s not found", opts.USBPin)
		}
		if err := p.In(gpio.PullDown, gpio.BothEdges); err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("gpio %s: %w", opts.USBPin, err)
		}
		b.usb = p
	}

	if opts.StateDir == "" {
		opts.StateDir = "."
	}
	if err := os.MkdirAll(opts.StateDir, 0o755); err != nil {
		_ = bus.Close()
		return nil, err
	}

	parts := node.Parts{
		I2C:      bus,
		Panel:    b.panel,
		USB:      b,
		Clock:    wallClock{},
		Retained: retained.NewFileStore(filepath.Join(opts.StateDir, "retained.bin")),
		Calib:    calib.NewFileStore(filepath.Join(opts.StateDir, "calibration.yaml")),
		Sleeper:  b,
	}
	if opts.ADCDir != "" {
		parts.Battery = IIOADC{Dir: opts.ADCDir, Channel: opts.ADCChan}
	}
	if !opts.NoRadio {
		parts.Radio = ble.New(cfg.Radio.LocalName)
	}
	n, err := node.Assemble(cfg, parts)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	b.Node = n
	return b, nil
}

func (b *Board) Close() error { return b.bus.Close() }

// USBConnected implements power.USBSense.
func (b *Board) USBConnected() bool {
	return b.usb != nil && b.usb.Read() == gpio.High
}

// Wake reports the cause of the current boot. The first boot of the process
// is a cold boot.
func (b *Board) Wake() types.Wake {
	return b.Node.Wake(b.resumed, b.edge)
}

// Sleep implements cycle.Sleeper by blocking until the timer expires or the
// USB pin reaches the armed level.
func (b *Board) Sleep(plan types.SleepPlan) {
	b.snapshot()
	b.resumed, b.edge = true, false
	deadline := time.Now().Add(plan.Duration)
	if !plan.EdgeWake || b.usb == nil {
		time.Sleep(plan.Duration)
		return
	}
	want := gpio.Low
	if plan.EdgeLevel == types.High {
		want = gpio.High
	}
	if waitLevel(b.usb, want, deadline) {
		b.edge = true
		lg.Infof("usb edge to %s", plan.EdgeLevel)
	}
}

// levelPin is the part of gpio.PinIn the sleep wait needs.
type levelPin interface {
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// waitLevel blocks until pin reads want or deadline passes and reports
// whether the level was reached. The wake is level triggered: a pin already
// at want returns at once, even if its edge came before the wait was armed.
func waitLevel(pin levelPin, want gpio.Level, deadline time.Time) bool {
	for {
		if pin.Read() == want {
			return true
		}
		left := time.Until(deadline)
		if left <= 0 {
			return false
		}
		pin.WaitForEdge(left)
	}
}

func (b *Board) snapshot() {
	if b.opts.PNGPath == "" {
		return
	}
	f, err := os.Create(b.opts.PNGPath)
	if err != nil {
		lg.Errorf("snapshot: %v", err)
		return
	}
	defer f.Close()
	if err := b.panel.WritePNG(f); err != nil {
		lg.Errorf("snapshot: %v", err)
	}
}

// Boot runs one cycle.
func (b *Board) Boot() (types.PersistedState, types.SleepPlan) {
	return b.Node.Boot(b.Wake())
}
