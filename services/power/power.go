// Package power converts the battery-sense ADC reading into cell voltage and
// state of charge, and defines the board's power-sense capabilities.
package power

import (
	"airnode-go/errcode"
	"airnode-go/x/mathx"
)

// ADC reads the battery-sense pin, in millivolts at the pin (after the divider).
type ADC interface {
	ReadPinMillivolts() (uint32, error)
}

// USBSense reports whether external USB power is present. It is a live pin
// read and is never persisted.
type USBSense interface {
	USBConnected() bool
}

// Params describes the cell and the sense divider.
type Params struct {
	EmptyMv      uint32 // 0 %
	FullMv       uint32 // 100 %
	DividerMilli uint32 // cell/pin ratio x 1000
}

// DefaultParams matches a single Li-ion cell behind a 4.38:1 divider.
var DefaultParams = Params{EmptyMv: 3000, FullMv: 4150, DividerMilli: 4380}

// CellMillivolts scales a pin voltage up through the divider.
func (p Params) CellMillivolts(pinMv uint32) uint32 {
	return uint32(mathx.RoundDiv(uint64(pinMv)*uint64(p.DividerMilli), 1000))
}

// Percent maps a cell voltage linearly onto [0,100], truncating, and clamps
// at the ends: at or below EmptyMv is 0, at or above FullMv is 100.
func (p Params) Percent(cellMv uint32) uint8 {
	return uint8(mathx.MapU32(cellMv, p.EmptyMv, p.FullMv, 0, 100))
}

// Read samples adc once and returns the cell voltage in millivolts.
func (p Params) Read(adc ADC) (uint32, error) {
	pin, err := adc.ReadPinMillivolts()
	if err != nil {
		return 0, errcode.Wrap(errcode.ReadFailure, "battery_read", err)
	}
	return p.CellMillivolts(pin), nil
}
