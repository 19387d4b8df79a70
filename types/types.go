package types

import "time"

// ---- Wake ----

// WakeCause is why execution resumed at the entry point.
type WakeCause uint8

const (
	WakeColdBoot WakeCause = iota // power-on or reset; retained memory is blank
	WakeTimer                     // sleep timer expired
	WakeExternal                  // USB-sense edge
)

func (c WakeCause) String() string {
	switch c {
	case WakeColdBoot:
		return "cold_boot"
	case WakeTimer:
		return "timer"
	case WakeExternal:
		return "external"
	}
	return "unknown"
}

// Warm reports whether the wake came out of deep sleep.
func (c WakeCause) Warm() bool { return c == WakeTimer || c == WakeExternal }

// Wake is the per-boot input to the controller. USBConnected is a live pin
// read and is never persisted.
type Wake struct {
	Cause        WakeCause
	USBConnected bool
}

// ---- Sampling ----

type SampleMode uint8

const (
	SampleFast SampleMode = iota // temperature + humidity only
	SampleFull                   // CO2 + temperature + humidity
)

func (m SampleMode) String() string {
	if m == SampleFull {
		return "full"
	}
	return "fast"
}

// ---- Sleep ----

// Level is a logic level on the USB-sense pin.
type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// SleepPlan is armed as the last action of every cycle. The device wakes on
// whichever comes first: the timer or an edge reaching EdgeLevel.
type SleepPlan struct {
	Duration  time.Duration
	EdgeWake  bool
	EdgeLevel Level
}
