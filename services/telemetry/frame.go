// Package telemetry encodes readings into the 15-byte BTHome v2 service-data
// frame and broadcasts it for a bounded advertising window.
package telemetry

import (
	"encoding/binary"
	"errors"

	"airnode-go/types"
)

// ServiceUUID is the BTHome 16-bit service identifier.
const ServiceUUID uint16 = 0xFCD2

// FrameLen is the fixed frame size.
const FrameLen = 15

// Frame layout.
const (
	flagsBTHomeV2 = 0x40

	idBattery     = 0x01 // uint8, %
	idTemperature = 0x02 // sint16, 0.01 °C
	idHumidity    = 0x03 // uint16, 0.01 %
	idVoltage     = 0x0C // uint16, mV
	idCO2         = 0x12 // uint16, ppm

	offFlags    = 0
	offBattery  = 1
	offHumidity = 3
	offTemp     = 6
	offCO2      = 9
	offVoltage  = 12
)

type Frame [FrameLen]byte

// Encode packs the readings. Values wider than 16 bits are truncated
// modulo 65536; the frame is always FrameLen bytes.
func Encode(m types.Measurement, voltageMv uint32, batteryPercent uint8) Frame {
	var f Frame
	f[offFlags] = flagsBTHomeV2

	f[offBattery] = idBattery
	f[offBattery+1] = batteryPercent

	f[offHumidity] = idHumidity
	binary.LittleEndian.PutUint16(f[offHumidity+1:], m.HumidityCenti)

	f[offTemp] = idTemperature
	binary.LittleEndian.PutUint16(f[offTemp+1:], m.TemperatureCenti)

	f[offCO2] = idCO2
	binary.LittleEndian.PutUint16(f[offCO2+1:], m.CO2Ppm)

	f[offVoltage] = idVoltage
	binary.LittleEndian.PutUint16(f[offVoltage+1:], uint16(voltageMv))
	return f
}

// Decoded is the content of a frame.
type Decoded struct {
	BatteryPercent   uint8
	HumidityCenti    uint16
	TemperatureCenti uint16
	CO2Ppm           uint16
	VoltageMv        uint16
}

var ErrBadFrame = errors.New("telemetry: malformed frame")

// Decode parses a frame produced by Encode. It checks length and every
// object id.
func Decode(b []byte) (Decoded, error) {
	if len(b) != FrameLen || b[offFlags] != flagsBTHomeV2 ||
		b[offBattery] != idBattery || b[offHumidity] != idHumidity ||
		b[offTemp] != idTemperature || b[offCO2] != idCO2 || b[offVoltage] != idVoltage {
		return Decoded{}, ErrBadFrame
	}
	return Decoded{
		BatteryPercent:   b[offBattery+1],
		HumidityCenti:    binary.LittleEndian.Uint16(b[offHumidity+1:]),
		TemperatureCenti: binary.LittleEndian.Uint16(b[offTemp+1:]),
		CO2Ppm:           binary.LittleEndian.Uint16(b[offCO2+1:]),
		VoltageMv:        binary.LittleEndian.Uint16(b[offVoltage+1:]),
	}, nil
}
