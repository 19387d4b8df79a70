package sim

import (
	"errors"
	"time"
)

var ErrADC = errors.New("sim: adc fault")

// Battery is a linearly discharging cell behind the sense divider. It
// recharges at ChargePerHour while USB is plugged in.
type Battery struct {
	clock *Clock
	usb   *USB
	last  time.Time

	CellMv        float64
	DrainPerHour  float64 // mV
	ChargePerHour float64 // mV
	FullMv        float64
	DividerMilli  uint32
	Fault         bool
}

func NewBattery(clock *Clock, usb *USB, cellMv float64, dividerMilli uint32) *Battery {
	return &Battery{
		clock:         clock,
		usb:           usb,
		last:          clock.Now(),
		CellMv:        cellMv,
		DrainPerHour:  2,
		ChargePerHour: 400,
		FullMv:        4200,
		DividerMilli:  dividerMilli,
	}
}

func (b *Battery) advance() {
	now := b.clock.Now()
	h := now.Sub(b.last).Hours()
	b.last = now
	if b.usb != nil && b.usb.USBConnected() {
		b.CellMv = min(b.CellMv+h*b.ChargePerHour, b.FullMv)
		return
	}
	b.CellMv = max(b.CellMv-h*b.DrainPerHour, 0)
}

// ReadPinMillivolts implements power.ADC.
func (b *Battery) ReadPinMillivolts() (uint32, error) {
	if b.Fault {
		return 0, ErrADC
	}
	b.advance()
	return uint32(b.CellMv * 1000 / float64(b.DividerMilli)), nil
}

// Span is an interval of virtual time during which USB is plugged in.
type Span struct {
	From, To time.Time
}

// USB follows a plug schedule in virtual time.
type USB struct {
	clock *Clock
	Plugs []Span
}

func NewUSB(clock *Clock, plugs ...Span) *USB { return &USB{clock: clock, Plugs: plugs} }

// USBConnected implements power.USBSense.
func (u *USB) USBConnected() bool { return u.connectedAt(u.clock.Now()) }

func (u *USB) connectedAt(t time.Time) bool {
	for _, s := range u.Plugs {
		if !t.Before(s.From) && t.Before(s.To) {
			return true
		}
	}
	return false
}

// nextEdge returns the first time after t at which the pin reaches want.
func (u *USB) nextEdge(t time.Time, want bool) (time.Time, bool) {
	var best time.Time
	found := false
	for _, s := range u.Plugs {
		edge := s.From
		if !want {
			edge = s.To
		}
		if edge.After(t) && (!found || edge.Before(best)) && u.connectedAt(edge) == want {
			best, found = edge, true
		}
	}
	return best, found
}
