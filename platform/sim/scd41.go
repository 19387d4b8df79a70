package sim

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"airnode-go/drivers/scd41"

	"tinygo.org/x/drivers/scd4x"
)

// Single-shot commands exist on the SCD41 only.
const (
	cmdSingleShot    = 0x219D
	cmdSingleShotRHT = 0x2196
)

var (
	ErrNack       = errors.New("sim: i2c nack")
	ErrUnknownCmd = errors.New("sim: unknown command")
)

// Environment returns the true air state at t.
type Environment func(t time.Time) (co2Ppm uint16, tempCenti, humCenti int32)

// IndoorDay is a smooth office day: CO2 rises during working hours,
// temperature follows with a small swing.
func IndoorDay(t time.Time) (uint16, int32, int32) {
	h := float64(t.Hour()) + float64(t.Minute())/60
	phase := math.Sin((h - 9) / 24 * 2 * math.Pi)
	co2 := 650 + 350*math.Max(phase, 0)
	temp := 2150 + 150*phase
	hum := 4500 - 500*phase
	return uint16(co2), int32(temp), int32(hum)
}

// SCD41 emulates the sensor's single-shot command set on an I2C bus. It
// implements drivers.I2C, so the real driver talks to it unchanged.
type SCD41 struct {
	clock *Clock
	env   Environment

	// Detached makes every transfer fail, as an unplugged sensor does.
	Detached bool
	// CO2Bias is the sensor's error against the environment; FRC removes it.
	CO2Bias int32

	readyAt    time.Time
	converting bool
	ready      bool
	fullShot   bool
	offsetWord uint16
	asc        bool
	pending    []byte

	// Persisted is set once settings were written to the chip's EEPROM.
	Persisted bool

	FullShots, FastShots, Reinits int
}

func NewSCD41(clock *Clock, env Environment) *SCD41 {
	if env == nil {
		env = IndoorDay
	}
	return &SCD41{clock: clock, env: env, asc: true}
}

// Tx implements drivers.I2C.
func (s *SCD41) Tx(addr uint16, w, r []byte) error {
	if addr != scd4x.Address || s.Detached {
		return ErrNack
	}
	if len(w) == 0 {
		n := copy(r, s.pending)
		s.pending = s.pending[n:]
		return nil
	}
	if len(w) < 2 {
		return ErrUnknownCmd
	}
	cmd := binary.BigEndian.Uint16(w)
	var arg uint16
	if len(w) >= 5 {
		if scd41.CRC8(w[2:4]) != w[4] {
			return ErrNack
		}
		arg = binary.BigEndian.Uint16(w[2:4])
	}

	now := s.clock.Now()
	switch cmd {
	case scd4x.CmdStopPeriodicMeasurement:
	case scd4x.CmdPersistSettings:
		s.Persisted = true
	case scd4x.CmdReinit:
		s.Reinits++
		s.converting, s.ready = false, false
	case cmdSingleShot:
		s.FullShots++
		s.start(now, 5*time.Second, true)
	case cmdSingleShotRHT:
		s.FastShots++
		s.start(now, 50*time.Millisecond, false)
	case scd4x.CmdDataReady:
		if s.converting && !now.Before(s.readyAt) {
			s.converting, s.ready = false, true
		}
		status := uint16(0x8000)
		if s.ready {
			status |= 0x0006
		}
		s.respond(status)
	case scd4x.CmdReadMeasurement:
		if !s.ready {
			s.respond(0, 0, 0)
			break
		}
		s.ready = false
		co2, t, h := s.sample(now)
		s.respond(co2, t, h)
	case scd4x.CmdSetTempOffset:
		s.offsetWord = arg
	case scd4x.CmdSetASCE:
		s.asc = arg != 0
	case scd4x.CmdForcedRecal:
		co2, _, _ := s.env(now)
		corr := int32(arg) - (int32(co2) + s.CO2Bias)
		s.CO2Bias += corr
		s.respond(uint16(0x8000 + corr))
	default:
		return ErrUnknownCmd
	}
	if len(r) > 0 {
		n := copy(r, s.pending)
		s.pending = s.pending[n:]
	}
	return nil
}

func (s *SCD41) start(now time.Time, d time.Duration, full bool) {
	s.converting, s.ready, s.fullShot = true, false, full
	s.readyAt = now.Add(d)
}

// sample returns raw words for the last conversion.
func (s *SCD41) sample(now time.Time) (co2Word, tWord, hWord uint16) {
	co2, t, h := s.env(now)
	if s.fullShot {
		co2Word = uint16(max(int32(co2)+s.CO2Bias, 0))
	}
	offset := int32(uint32(s.offsetWord) * 17500 / 65536)
	t -= offset
	tWord = uint16(min(max((t+4500)*65536/17500, 0), 0xffff))
	hWord = uint16(min(max(h*65536/10000, 0), 0xffff))
	return co2Word, tWord, hWord
}

func (s *SCD41) respond(words ...uint16) {
	s.pending = s.pending[:0]
	for _, w := range words {
		b := []byte{byte(w >> 8), byte(w)}
		s.pending = append(s.pending, b[0], b[1], scd41.CRC8(b))
	}
}

// TemperatureOffsetCenti is the offset programmed into the emulated chip.
func (s *SCD41) TemperatureOffsetCenti() int32 { return int32(uint32(s.offsetWord) * 17500 / 65536) }

// AutoCalibration reports whether ASC is enabled.
func (s *SCD41) AutoCalibration() bool { return s.asc }
