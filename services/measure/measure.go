// Package measure is the measurement pipeline: it drives the sensor
// capability, applies calibration offsets and smoothing, and degrades to an
// error Measurement instead of failing the cycle.
package measure

import (
	logger "github.com/d2r2/go-logger"

	"airnode-go/errcode"
	"airnode-go/types"
	"airnode-go/x/filter"
	"airnode-go/x/mathx"
)

var lg = logger.NewPackageLogger("measure", logger.InfoLevel)

// Reading is one raw conversion in signed centi-units. CO2Ppm is 0 after a
// fast sample.
type Reading struct {
	CO2Ppm           uint16
	TemperatureCenti int32
	HumidityCenti    int32
}

// Sensor is the transducer capability.
type Sensor interface {
	// Begin readies the sensor. warm is true after a deep-sleep wake, when
	// the sensor kept its configuration and reinitialisation can be skipped.
	Begin(warm bool) error
	SampleFast() (Reading, error)
	SampleFull() (Reading, error)
	// ForceRecalibrate sets the CO2 reference and returns the correction in ppm.
	ForceRecalibrate(targetPpm uint16) (int16, error)
}

// OffsetProgrammer is implemented by sensors that compensate temperature
// on-chip. Only non-negative offsets can be programmed.
type OffsetProgrammer interface {
	SetTemperatureOffset(centi uint16) error
}

const maxHumidityCenti = 10000

// Pipeline is created once per boot.
type Pipeline struct {
	sensor   Sensor
	alpha    uint8
	cal      types.SensorConfig
	hwOffset bool  // temperature offset handled by the sensor
	beginErr error // non-nil when Begin failed this boot
}

func New(s Sensor, alphaPercent uint8) *Pipeline {
	return &Pipeline{sensor: s, alpha: alphaPercent}
}

// Begin starts the sensor and installs calibration. A failure is remembered
// so that Sample reports it without touching the bus again.
func (p *Pipeline) Begin(warm bool, cal types.SensorConfig) error {
	p.cal = cal
	if err := p.sensor.Begin(warm); err != nil {
		p.beginErr = errcode.Wrap(errcode.SensorNotDetected, "begin", err)
		lg.Errorf("sensor begin failed: %v", err)
		return p.beginErr
	}
	p.beginErr = nil

	op, ok := p.sensor.(OffsetProgrammer)
	p.hwOffset = ok && cal.TemperatureOffsetCenti > 0
	if p.hwOffset && !warm {
		if err := op.SetTemperatureOffset(uint16(cal.TemperatureOffsetCenti)); err != nil {
			lg.Errorf("temperature offset not programmed, applying in software: %v", err)
			p.hwOffset = false
		} else {
			lg.Debugf("temperature offset %d programmed", cal.TemperatureOffsetCenti)
		}
	}
	return nil
}

// Sample takes one reading in mode and smooths it against prev. On any
// failure the returned Measurement has Error set and no readings; the error
// carries the errcode kind.
func (p *Pipeline) Sample(mode types.SampleMode, prev types.Measurement) (types.Measurement, error) {
	if p.beginErr != nil {
		return types.Measurement{Error: true}, p.beginErr
	}

	read, op := p.sensor.SampleFast, "sample_fast"
	if mode == types.SampleFull {
		read, op = p.sensor.SampleFull, "sample_full"
	}
	r, err := read()
	if err != nil {
		if errcode.Of(err) == errcode.Error {
			err = errcode.Wrap(errcode.ReadFailure, op, err)
		}
		lg.Errorf("%s failed: %v", op, err)
		return types.Measurement{Error: true}, err
	}

	t, h := p.calibrate(r)
	m := types.Measurement{
		TemperatureCenti: filter.EMA(t, prev.TemperatureCenti, p.alpha),
		HumidityCenti:    filter.EMA(h, prev.HumidityCenti, p.alpha),
	}
	if mode == types.SampleFull && r.CO2Ppm > 0 {
		m.CO2Ppm = filter.EMA(r.CO2Ppm, prev.CO2Ppm, p.alpha)
	}
	lg.Debugf("%s raw co2=%d t=%d h=%d -> co2=%d t=%d h=%d",
		op, r.CO2Ppm, r.TemperatureCenti, r.HumidityCenti, m.CO2Ppm, m.TemperatureCenti, m.HumidityCenti)
	return m, nil
}

// calibrate subtracts the configured offsets and clamps to the field ranges.
func (p *Pipeline) calibrate(r Reading) (t, h uint16) {
	tc := r.TemperatureCenti
	if !p.hwOffset {
		tc -= int32(p.cal.TemperatureOffsetCenti)
	}
	hc := r.HumidityCenti - int32(p.cal.HumidityOffsetCenti)
	return uint16(mathx.Clamp(tc, 0, 65535)), uint16(mathx.Clamp(hc, 0, maxHumidityCenti))
}

// Recalibrate runs forced recalibration against targetPpm.
func (p *Pipeline) Recalibrate(targetPpm uint16) (int16, error) {
	if p.beginErr != nil {
		return 0, p.beginErr
	}
	corr, err := p.sensor.ForceRecalibrate(targetPpm)
	if err != nil {
		if errcode.Of(err) == errcode.Error {
			err = errcode.Wrap(errcode.ReadFailure, "frc", err)
		}
		return 0, err
	}
	lg.Infof("frc target=%d correction=%d", targetPpm, corr)
	return corr, nil
}
