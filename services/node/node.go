// Package node assembles a cycle controller from a board's raw parts and the
// loaded configuration. Platforms supply buses, pins and stores; node turns
// them into the sensor pipeline, renderer and broadcaster.
package node

import (
	"time"

	logger "github.com/d2r2/go-logger"
	"tinygo.org/x/drivers"

	"airnode-go/drivers/scd41"
	"airnode-go/services/calib"
	"airnode-go/services/config"
	"airnode-go/services/cycle"
	"airnode-go/services/display"
	"airnode-go/services/measure"
	"airnode-go/services/power"
	"airnode-go/services/retained"
	"airnode-go/services/telemetry"
)

var lg = logger.NewPackageLogger("node", logger.InfoLevel)

// Parts is what a platform provides. Panel, Radio, Clock, Battery and USB
// may be nil when the board has none.
type Parts struct {
	I2C      drivers.I2C
	Panel    display.Panel
	Radio    telemetry.Advertiser
	Battery  power.ADC
	USB      power.USBSense
	Clock    cycle.Clock
	Retained retained.Store
	Calib    calib.Store
	Sleeper  cycle.Sleeper

	// Wait is the low-power wait used while polling the sensor and panel
	// and while advertising. Default time.Sleep.
	Wait func(time.Duration)
}

// Node is an assembled device.
type Node struct {
	*cycle.Controller
	Sensor   *scd41.Device
	Renderer *display.Renderer
}

// Assemble wires parts according to cfg. A panel too small for the layout is
// an error; everything else degrades at run time.
func Assemble(cfg config.Config, p Parts) (*Node, error) {
	wait := p.Wait
	if wait == nil {
		wait = time.Sleep
	}
	n := &Node{}
	hw := cycle.Hardware{
		Battery:  p.Battery,
		USB:      p.USB,
		Clock:    p.Clock,
		Retained: p.Retained,
		Calib:    p.Calib,
		Sleeper:  p.Sleeper,
	}

	if p.I2C != nil {
		n.Sensor = scd41.New(p.I2C)
		n.Sensor.Configure(scd41.Config{
			FullPoll:    cfg.Sensor.FullPoll,
			FastPoll:    cfg.Sensor.FastPoll,
			FullTimeout: cfg.Sensor.FullTimeout,
			FastTimeout: cfg.Sensor.FastTimeout,
			Wait:        wait,
		})
		hw.Sampler = measure.New(measure.NewSCD41(n.Sensor), cfg.Sampling.AlphaPercent)
	}

	if p.Panel != nil {
		r, err := display.New(p.Panel, display.Options{
			ShowClock:   cfg.Display.ShowClock,
			ShowBorders: cfg.Display.ShowBorders,
			BusyPoll:    cfg.Display.BusyPoll,
			BusyTimeout: cfg.Display.BusyTimeout,
			Wait:        wait,
		})
		if err != nil {
			return nil, err
		}
		n.Renderer = r
		hw.Display = r
	}

	if p.Radio != nil && cfg.Radio.Enabled {
		hw.Radio = &telemetry.Broadcaster{
			Adv:         p.Radio,
			ServiceUUID: cfg.Radio.ServiceUUID,
			Interval:    cfg.Radio.Interval,
			Window:      cfg.Radio.Window,
			Wait:        wait,
		}
	}

	n.Controller = cycle.New(cfg, hw)
	lg.Infof("assembled board=%s sensor=%v panel=%v radio=%v",
		cfg.Board, n.Sensor != nil, n.Renderer != nil, hw.Radio != nil)
	return n, nil
}
