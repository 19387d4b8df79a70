//go:build linux

package linux

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// IIOADC reads one channel of a Linux IIO voltage ADC through sysfs:
// in_voltageN_raw scaled by in_voltageN_scale (or in_voltage_scale) gives
// millivolts at the pin.
type IIOADC struct {
	Dir     string // e.g. /sys/bus/iio/devices/iio:device0
	Channel int
}

// ReadPinMillivolts implements power.ADC.
func (a IIOADC) ReadPinMillivolts() (uint32, error) {
	raw, err := a.readFloat(fmt.Sprintf("in_voltage%d_raw", a.Channel))
	if err != nil {
		return 0, err
	}
	scale, err := a.readFloat(fmt.Sprintf("in_voltage%d_scale", a.Channel))
	if os.IsNotExist(err) {
		scale, err = a.readFloat("in_voltage_scale")
	}
	if err != nil {
		return 0, err
	}
	mv := raw * scale
	if mv < 0 {
		mv = 0
	}
	return uint32(mv + 0.5), nil
}

func (a IIOADC) readFloat(name string) (float64, error) {
	b, err := os.ReadFile(filepath.Join(a.Dir, name))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(string(bytes.TrimSpace(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("iio %s: %w", name, err)
	}
	return v, nil
}
