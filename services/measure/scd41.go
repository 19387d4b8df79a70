package measure

import (
	"errors"

	"airnode-go/drivers/scd41"
	"airnode-go/errcode"
)

// SCD41 adapts the scd41 driver to Sensor and OffsetProgrammer.
type SCD41 struct {
	dev *scd41.Device
}

func NewSCD41(dev *scd41.Device) *SCD41 { return &SCD41{dev: dev} }

func (s *SCD41) Begin(warm bool) error {
	if err := s.dev.Begin(warm); err != nil {
		return classify("begin", err)
	}
	if !warm {
		// Single-shot only; self-calibration assumes periodic fresh-air exposure.
		if err := s.dev.SetAutoCalibration(false); err != nil {
			return classify("begin", err)
		}
	}
	return nil
}

func (s *SCD41) SetTemperatureOffset(centi uint16) error {
	return classify("set_t_offset", s.dev.SetTemperatureOffset(centi))
}

func (s *SCD41) SampleFast() (Reading, error) { return s.sample(false, "sample_fast") }
func (s *SCD41) SampleFull() (Reading, error) { return s.sample(true, "sample_full") }

func (s *SCD41) sample(full bool, op string) (Reading, error) {
	var raw scd41.Sample
	if err := s.dev.Read(full, &raw); err != nil {
		return Reading{}, classify(op, err)
	}
	return Reading{
		CO2Ppm:           raw.CO2(),
		TemperatureCenti: raw.CentiCelsius(),
		HumidityCenti:    raw.CentiRelHumidity(),
	}, nil
}

// ForceRecalibrate runs FRC and persists the result to the sensor's EEPROM.
func (s *SCD41) ForceRecalibrate(targetPpm uint16) (int16, error) {
	corr, err := s.dev.ForcedRecalibration(targetPpm)
	if err != nil {
		return 0, classify("frc", err)
	}
	if err := s.dev.PersistSettings(); err != nil {
		return corr, classify("persist", err)
	}
	return corr, nil
}

// classify maps driver sentinels onto error codes.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scd41.ErrNotDetected):
		return errcode.Wrap(errcode.SensorNotDetected, op, err)
	case errors.Is(err, scd41.ErrTimeout):
		return errcode.Wrap(errcode.Timeout, op, err)
	case errors.Is(err, scd41.ErrNotReady):
		return errcode.Wrap(errcode.NotReady, op, err)
	case errors.Is(err, scd41.ErrCRC):
		return errcode.Wrap(errcode.CRCMismatch, op, err)
	}
	return errcode.Wrap(errcode.ReadFailure, op, err)
}
