// Package scd41 drives the Sensirion SCD41 CO2/temperature/humidity sensor in
// single-shot mode, which the periodic-only scd4x package does not cover:
//
//	d.TriggerFull()          // CO2 + T + RH, ~5 s conversion
//	d.TriggerFast()          // T + RH only, ~50 ms conversion
//	err := d.Collect(&s)     // ErrNotReady while converting
//
// Read(full) performs trigger + bounded polling. Waits go through Config.Wait
// so a board can substitute a light-sleep for time.Sleep.
//
// Every received word is CRC-checked; a mismatch is reported as ErrCRC.
package scd41

import (
	"encoding/binary"
	"errors"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/scd4x"
)

// Errors returned by the driver.
var (
	ErrNotDetected = errors.New("scd41: not detected")
	ErrNotReady    = errors.New("scd41: not ready")
	ErrTimeout     = errors.New("scd41: timeout")
	ErrCRC         = errors.New("scd41: crc mismatch")
	ErrFRCFailed   = errors.New("scd41: forced recalibration failed")
)

// Config controls polling behaviour. All fields are optional.
type Config struct {
	// FullPoll is the interval between data-ready checks after TriggerFull. Default 1 s.
	FullPoll time.Duration
	// FastPoll is the interval between data-ready checks after TriggerFast. Default 20 ms.
	FastPoll time.Duration
	// FullTimeout bounds the total wait in Read(true). Default 10 s.
	FullTimeout time.Duration
	// FastTimeout bounds the total wait in Read(false). Default 1 s.
	FastTimeout time.Duration
	// Wait blocks for d. Default time.Sleep.
	Wait func(d time.Duration)
}

func (c *Config) setDefaults() {
	if c.FullPoll <= 0 {
		c.FullPoll = time.Second
	}
	if c.FastPoll <= 0 {
		c.FastPoll = 20 * time.Millisecond
	}
	if c.FullTimeout <= 0 {
		c.FullTimeout = 10 * time.Second
	}
	if c.FastTimeout <= 0 {
		c.FastTimeout = time.Second
	}
	if c.Wait == nil {
		c.Wait = time.Sleep
	}
}

// Device wraps an I2C connection to an SCD41.
type Device struct {
	bus     drivers.I2C
	Address uint16

	core *scd4x.Device
	cfg  Config
	tx   [5]byte
	rx   [9]byte
}

// New creates a new SCD41 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) *Device {
	d := &Device{
		bus:     bus,
		Address: scd4x.Address,
		core:    scd4x.New(bus),
	}
	d.cfg.setDefaults()
	return d
}

// Configure applies optional polling config.
func (d *Device) Configure(cfg Config) {
	cfg.setDefaults()
	d.cfg = cfg
}

// Begin prepares the sensor for single-shot use. A cold begin stops any
// periodic measurement and reinitialises the chip; a warm begin (wake from
// deep sleep) only probes it, since the sensor kept its state.
func (d *Device) Begin(warm bool) error {
	if warm {
		if _, err := d.core.DataReady(); err != nil {
			return errors.Join(ErrNotDetected, err)
		}
		return nil
	}
	if err := d.core.Configure(); err != nil {
		return errors.Join(ErrNotDetected, err)
	}
	return nil
}

// SetTemperatureOffset programs the on-chip temperature offset (°C x 100).
// The offset is volatile until PersistSettings.
func (d *Device) SetTemperatureOffset(centi uint16) error {
	word := uint16(uint32(centi) * 65536 / 17500)
	return d.sendCommandWithValue(scd4x.CmdSetTempOffset, word)
}

// SetAutoCalibration toggles automatic self-calibration.
func (d *Device) SetAutoCalibration(on bool) error {
	var v uint16
	if on {
		v = 1
	}
	return d.sendCommandWithValue(scd4x.CmdSetASCE, v)
}

// TriggerFull starts a CO2 + temperature + humidity conversion.
func (d *Device) TriggerFull() error { return d.sendCommand(cmdMeasureSingleShot) }

// TriggerFast starts a temperature + humidity conversion.
func (d *Device) TriggerFast() error { return d.sendCommand(cmdMeasureSingleShotRHTOnly) }

// Collect reads one measurement if the sensor has one ready; otherwise it
// returns ErrNotReady. Any bus error is returned as-is.
func (d *Device) Collect(out *Sample) error {
	ok, err := d.core.DataReady()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotReady
	}
	if err := d.readWords(scd4x.CmdReadMeasurement, d.rx[:9]); err != nil {
		return err
	}
	if out != nil {
		out.RawCO2 = binary.BigEndian.Uint16(d.rx[0:2])
		out.RawTemp = binary.BigEndian.Uint16(d.rx[3:5])
		out.RawHumidity = binary.BigEndian.Uint16(d.rx[6:8])
	}
	return nil
}

// Read performs a full measurement cycle: trigger followed by bounded
// polling until Collect succeeds or the poll budget is spent. The budget is
// counted in polls, not wall time, so it holds even when Wait is a light
// sleep that stops the clock.
func (d *Device) Read(full bool, out *Sample) error {
	poll, timeout := d.cfg.FastPoll, d.cfg.FastTimeout
	trigger := d.TriggerFast
	if full {
		poll, timeout = d.cfg.FullPoll, d.cfg.FullTimeout
		trigger = d.TriggerFull
	}
	if err := trigger(); err != nil {
		return err
	}
	budget := int(timeout / poll)
	if budget < 1 {
		budget = 1
	}
	for i := 0; ; i++ {
		d.cfg.Wait(poll)
		err := d.Collect(out)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, ErrNotReady):
			return err
		case i+1 >= budget:
			return ErrTimeout
		}
	}
}

// ForcedRecalibration sets the CO2 reference to target ppm and returns the
// applied correction in ppm. The sensor must be idle and should have been
// operated in fresh air for minutes beforehand.
func (d *Device) ForcedRecalibration(target uint16) (int16, error) {
	_ = d.core.StopPeriodicMeasurement()
	d.cfg.Wait(delayStopPeriod * time.Millisecond)

	if err := d.sendCommandWithValue(scd4x.CmdForcedRecal, target); err != nil {
		return 0, err
	}
	d.cfg.Wait(delayFRC * time.Millisecond)
	if err := d.bus.Tx(d.Address, nil, d.rx[:3]); err != nil {
		return 0, err
	}
	if crc8(d.rx[0:2]) != d.rx[2] {
		return 0, ErrCRC
	}
	word := binary.BigEndian.Uint16(d.rx[0:2])
	if word == frcFailedWord {
		return 0, ErrFRCFailed
	}
	return int16(int32(word) - frcCorrectionMid), nil
}

// PersistSettings writes offsets and calibration to the sensor's EEPROM.
func (d *Device) PersistSettings() error {
	if err := d.sendCommand(scd4x.CmdPersistSettings); err != nil {
		return err
	}
	d.cfg.Wait(delayPersist * time.Millisecond)
	return nil
}

func (d *Device) sendCommand(command uint16) error {
	binary.BigEndian.PutUint16(d.tx[0:], command)
	return d.bus.Tx(d.Address, d.tx[0:2], nil)
}

func (d *Device) sendCommandWithValue(command, value uint16) error {
	binary.BigEndian.PutUint16(d.tx[0:], command)
	binary.BigEndian.PutUint16(d.tx[2:], value)
	d.tx[4] = crc8(d.tx[2:4])
	if err := d.bus.Tx(d.Address, d.tx[0:5], nil); err != nil {
		return err
	}
	d.cfg.Wait(delayCommand * time.Millisecond)
	return nil
}

// readWords issues command and reads len(buf)/3 CRC-protected words.
func (d *Device) readWords(command uint16, buf []byte) error {
	if err := d.sendCommand(command); err != nil {
		return err
	}
	d.cfg.Wait(delayCommand * time.Millisecond)
	if err := d.bus.Tx(d.Address, nil, buf); err != nil {
		return err
	}
	for i := 0; i+2 < len(buf); i += 3 {
		if crc8(buf[i:i+2]) != buf[i+2] {
			return ErrCRC
		}
	}
	return nil
}

// Sample holds raw readings.
type Sample struct {
	RawCO2      uint16
	RawTemp     uint16
	RawHumidity uint16
}

// Fixed-point conversion helpers operating on Sample.

// CO2 returns ppm. Zero after a fast (RHT-only) conversion.
func (s Sample) CO2() uint16 { return s.RawCO2 }

// CentiCelsius returns °C x 100: -45 + 175 * raw / 2^16.
func (s Sample) CentiCelsius() int32 {
	return -4500 + int32((uint32(s.RawTemp)*17500)>>16)
}

// CentiRelHumidity returns %RH x 100: 100 * raw / 2^16.
func (s Sample) CentiRelHumidity() int32 {
	return int32((uint32(s.RawHumidity) * 10000) >> 16)
}

// CRC8 is the checksum the sensor appends to every 16-bit word.
func CRC8(word []byte) uint8 { return crc8(word) }

// crc8 is the Sensirion CRC-8 (poly 0x31, init 0xFF).
func crc8(buf []byte) uint8 {
	var crc uint8 = 0xff
	for _, b := range buf {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
