package display

import "airnode-go/types"

// FieldSet is a bitmask of screen fields.
type FieldSet uint8

const (
	FieldCO2 FieldSet = 1 << iota
	FieldTemperature
	FieldHumidity
	FieldClock
	FieldBattery // battery percent or USB indicator
	FieldError   // error flag flipped; the whole content area changes

	contentFields = FieldCO2 | FieldTemperature | FieldHumidity
)

func (s FieldSet) Has(f FieldSet) bool { return s&f != 0 }

func (s FieldSet) String() string {
	if s == 0 {
		return "none"
	}
	names := [...]string{"co2", "temperature", "humidity", "clock", "battery", "error"}
	out := ""
	for i, n := range names {
		if s&(1<<i) != 0 {
			if out != "" {
				out += ","
			}
			out += n
		}
	}
	return out
}

// Dirty compares what should be shown with what the panel shows. A field is
// dirty when it differs, except that clock fields only count when showClock
// is set, and a field holding its unset value (CO2 0, clock 255) never does.
// A change of the error flag dirties every visible field.
func Dirty(cur, prev types.DisplayState, showClock bool) FieldSet {
	clockSet := cur.Hours != types.Unset && cur.Minutes != types.Unset

	if cur.Error != prev.Error {
		s := FieldError | contentFields | FieldBattery
		if showClock && clockSet {
			s |= FieldClock
		}
		return s
	}

	var s FieldSet
	if cur.CO2Ppm != 0 && cur.CO2Ppm != prev.CO2Ppm {
		s |= FieldCO2
	}
	if cur.TemperatureCenti != prev.TemperatureCenti {
		s |= FieldTemperature
	}
	if cur.HumidityCenti != prev.HumidityCenti {
		s |= FieldHumidity
	}
	if showClock && clockSet && (cur.Hours != prev.Hours || cur.Minutes != prev.Minutes) {
		s |= FieldClock
	}
	if cur.BatteryPercent != prev.BatteryPercent || cur.USBConnected != prev.USBConnected {
		s |= FieldBattery
	}
	return s
}

// Policy decides the refresh mode for this cycle and the counter to persist.
// A full refresh is forced once counter reaches interval, or when nothing has
// been shown yet; it resets the counter. Every other cycle increments it.
func Policy(counter, interval uint16, hasPrev bool) (full bool, next uint16) {
	if !hasPrev || counter >= interval {
		return true, 0
	}
	return false, counter + 1
}
