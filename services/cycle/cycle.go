// Package cycle is the wake-cycle state machine. Every boot runs exactly one
// cycle: sample, update retained state, render, broadcast, then arm sleep.
//
// RunCycle is a pure transition over PersistedState so that a harness can
// call it in a loop instead of power-cycling hardware. Boot adds the
// load/store boundary around it.
package cycle

import (
	"errors"
	"time"

	logger "github.com/d2r2/go-logger"

	"airnode-go/errcode"
	"airnode-go/services/calib"
	"airnode-go/services/config"
	"airnode-go/services/display"
	"airnode-go/services/power"
	"airnode-go/services/retained"
	"airnode-go/services/telemetry"
	"airnode-go/types"
	"airnode-go/x/filter"
)

var lg = logger.NewPackageLogger("cycle", logger.InfoLevel)

// -----------------------------------------------------------------------------
// Capabilities
// -----------------------------------------------------------------------------

// Sampler is the measurement pipeline.
type Sampler interface {
	Begin(warm bool, cal types.SensorConfig) error
	Sample(mode types.SampleMode, prev types.Measurement) (types.Measurement, error)
	Recalibrate(targetPpm uint16) (int16, error)
}

type Renderer interface {
	Render(cur, prev types.DisplayState, full bool) (types.DisplayState, error)
}

type Broadcaster interface {
	Broadcast(f telemetry.Frame) error
}

// Clock supplies wall-clock time for the optional clock field.
type Clock interface {
	Now() time.Time
}

// Sleeper arms the wake sources and enters deep sleep. On hardware it does
// not return.
type Sleeper interface {
	Sleep(plan types.SleepPlan)
}

// Hardware groups the collaborators of a cycle. Radio, Clock and USB may be
// nil.
type Hardware struct {
	Sampler  Sampler
	Display  Renderer
	Radio    Broadcaster
	Battery  power.ADC
	USB      power.USBSense
	Clock    Clock
	Retained retained.Store
	Calib    calib.Store
	Sleeper  Sleeper
}

// -----------------------------------------------------------------------------
// Controller
// -----------------------------------------------------------------------------

type Controller struct {
	cfg     config.Config
	battery power.Params
	hw      Hardware
}

func New(cfg config.Config, hw Hardware) *Controller {
	return &Controller{
		cfg:     cfg,
		battery: power.Params(cfg.Battery),
		hw:      hw,
	}
}

// Classify derives the wake cause from what ended the previous sleep.
// resumed is false on the first run after power-up or reset.
func Classify(resumed, edge bool) types.WakeCause {
	switch {
	case !resumed:
		return types.WakeColdBoot
	case edge:
		return types.WakeExternal
	}
	return types.WakeTimer
}

// Wake builds the wake record for this boot. USB presence is read live from
// the pin; a board without USB sense always reports battery power.
func (c *Controller) Wake(resumed, edge bool) types.Wake {
	return types.Wake{
		Cause:        Classify(resumed, edge),
		USBConnected: c.hw.USB != nil && c.hw.USB.USBConnected(),
	}
}

// Mode is the sampling policy: full every FullEvery-th wake, fast otherwise.
func (c *Controller) Mode(wakeCount uint16) types.SampleMode {
	if wakeCount%c.cfg.Sampling.FullEvery == 0 {
		return types.SampleFull
	}
	return types.SampleFast
}

// Plan is the sleep configuration for the given power source. The edge wake
// is armed for the level opposite to the current USB state.
func (c *Controller) Plan(usb bool) types.SleepPlan {
	if usb {
		return types.SleepPlan{Duration: c.cfg.Sleep.USB, EdgeWake: true, EdgeLevel: types.Low}
	}
	return types.SleepPlan{Duration: c.cfg.Sleep.Battery, EdgeWake: true, EdgeLevel: types.High}
}

// RunCycle performs one wake cycle on st and returns the state to retain and
// the sleep to arm. It never fails: sensor, display and radio problems
// degrade the cycle but a plan is always produced.
func (c *Controller) RunCycle(st types.PersistedState, w types.Wake) (types.PersistedState, types.SleepPlan) {
	// 1. duty-cycle counter
	switch {
	case w.USBConnected:
		st.WakeCount = 0
	case w.Cause.Warm():
		st.WakeCount++
	}

	// 2-3. sample
	mode := c.Mode(st.WakeCount)
	c.sample(&st, w.Cause.Warm(), mode)

	// 4. battery
	if !w.USBConnected {
		c.readBattery(&st)
	}

	// Both outputs see the same snapshot of st.
	c.render(&st, w.USBConnected)
	c.broadcast(st)

	// 5. sleep
	plan := c.Plan(w.USBConnected)
	lg.Infof("wake=%s usb=%v count=%d mode=%s co2=%d t=%d h=%d bat=%d%% err=%v sleep=%v",
		w.Cause, w.USBConnected, st.WakeCount, mode, st.CO2Ppm, st.TemperatureCenti,
		st.HumidityCenti, st.BatteryPercent, st.Error, plan.Duration)
	return st, plan
}

func (c *Controller) sample(st *types.PersistedState, warm bool, mode types.SampleMode) {
	if c.hw.Sampler == nil {
		st.Error = true
		return
	}
	if err := c.hw.Sampler.Begin(warm, st.SensorConfig); err != nil {
		// Sample reports the failure again and marks the cycle.
		lg.Errorf("sensor begin: %v", err)
	}

	prev := types.Measurement{CO2Ppm: st.CO2Ppm, TemperatureCenti: st.TemperatureCenti, HumidityCenti: st.HumidityCenti}
	m, err := c.hw.Sampler.Sample(mode, prev)
	if err != nil || m.Error {
		st.Error = true
		lg.Errorf("sample %s failed: %s", mode, sampleFailure(err))
		return
	}
	st.Error = false
	if m.CO2Ppm > 0 {
		st.CO2Ppm = m.CO2Ppm
	}
	st.TemperatureCenti = m.TemperatureCenti
	st.HumidityCenti = m.HumidityCenti
}

// sampleFailure is the code logged for a failed sample. A sampler may flag
// the measurement without returning an error.
func sampleFailure(err error) errcode.Code {
	if err == nil {
		return errcode.ReadFailure
	}
	return errcode.Of(err)
}

func (c *Controller) readBattery(st *types.PersistedState) {
	if c.hw.Battery == nil {
		return
	}
	mv, err := c.battery.Read(c.hw.Battery)
	if err != nil {
		lg.Errorf("battery: %v", err)
		return
	}
	st.BatteryVoltageMv = filter.EMA(mv, st.BatteryVoltageMv, c.cfg.Sampling.AlphaPercent)
	st.BatteryPercent = c.battery.Percent(st.BatteryVoltageMv)
}

func (c *Controller) render(st *types.PersistedState, usb bool) {
	cur := types.DisplayState{
		CO2Ppm:           st.CO2Ppm,
		TemperatureCenti: st.TemperatureCenti,
		HumidityCenti:    st.HumidityCenti,
		Hours:            types.Unset,
		Minutes:          types.Unset,
		BatteryPercent:   st.BatteryPercent,
		USBConnected:     usb,
		Error:            st.Error,
	}
	if c.cfg.Display.ShowClock && c.hw.Clock != nil {
		now := c.hw.Clock.Now()
		cur.Hours, cur.Minutes = uint8(now.Hour()), uint8(now.Minute())
	}

	prev := types.BlankDisplay()
	if st.HasShown {
		prev = st.LastShown
	}
	full, next := display.Policy(st.DisplayRefreshCounter, c.cfg.Display.FullRefreshInterval, st.HasShown)
	st.DisplayRefreshCounter = next
	if c.hw.Display == nil {
		return
	}

	shown, err := c.hw.Display.Render(cur, prev, full)
	if err != nil {
		// What the glass shows is unknown; force a full refresh next cycle.
		lg.Errorf("display: %v", err)
		st.HasShown = false
		return
	}
	st.LastShown, st.HasShown = shown, true
}

func (c *Controller) broadcast(st types.PersistedState) {
	if c.hw.Radio == nil || !c.cfg.Radio.Enabled {
		return
	}
	m := types.Measurement{CO2Ppm: st.CO2Ppm, TemperatureCenti: st.TemperatureCenti, HumidityCenti: st.HumidityCenti}
	if err := c.hw.Radio.Broadcast(telemetry.Encode(m, st.BatteryVoltageMv, st.BatteryPercent)); err != nil {
		lg.Errorf("radio: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Boot: load, run, store, sleep
// -----------------------------------------------------------------------------

// Boot is the whole life of one power-on: load retained state, run the
// cycle, retain the result and arm sleep. Storing is the last step before
// sleep; arming sleep is the last step of all.
func (c *Controller) Boot(w types.Wake) (types.PersistedState, types.SleepPlan) {
	st, w := c.load(w)
	st, plan := c.RunCycle(st, w)
	if c.hw.Retained != nil {
		if err := c.hw.Retained.Save(st); err != nil {
			lg.Errorf("retain: %v", err)
		}
	}
	if c.hw.Sleeper != nil {
		c.hw.Sleeper.Sleep(plan)
	}
	return st, plan
}

func (c *Controller) load(w types.Wake) (types.PersistedState, types.Wake) {
	if w.Cause.Warm() && c.hw.Retained != nil {
		st, err := c.hw.Retained.Load()
		if err == nil {
			return st, w
		}
		if !errors.Is(err, retained.ErrEmpty) {
			lg.Errorf("retained load: %v", err)
		}
		lg.Infof("no retained state after %s wake, starting cold", w.Cause)
		w.Cause = types.WakeColdBoot
	}

	var st types.PersistedState
	if c.hw.Calib != nil {
		cal, err := c.hw.Calib.Load()
		if err != nil {
			lg.Errorf("calibration load: %v", err)
		}
		st.SensorConfig = cal
	}
	return st, w
}

// Recalibrate stores targetPpm as the forced-recalibration reference and
// runs FRC on the sensor. The sensor should have been in fresh air for a few
// minutes.
func (c *Controller) Recalibrate(targetPpm uint16) (int16, error) {
	if c.hw.Sampler == nil {
		return 0, errcode.SensorNotDetected
	}
	var cal types.SensorConfig
	if c.hw.Calib != nil {
		var err error
		if cal, err = c.hw.Calib.Load(); err != nil {
			return 0, err
		}
		cal.FRCValue = targetPpm
		if err := c.hw.Calib.Save(cal); err != nil {
			return 0, err
		}
	}
	if err := c.hw.Sampler.Begin(false, cal); err != nil {
		return 0, err
	}
	return c.hw.Sampler.Recalibrate(targetPpm)
}
