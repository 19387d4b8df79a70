package types

// Unset marks a clock field that has never been shown.
const Unset uint8 = 255

// ------------------------
// Calibration
// ------------------------

// SensorConfig is kept in non-volatile storage and mirrored into retained
// memory on cold boot.
type SensorConfig struct {
	TemperatureOffsetCenti int16  `yaml:"t_offset"`
	HumidityOffsetCenti    int16  `yaml:"h_offset"`
	FRCValue               uint16 `yaml:"frc_value"`
}

// ------------------------
// Readings
// ------------------------

// Measurement is produced fresh each boot. CO2Ppm == 0 means "not sampled
// this cycle" (fast sample or failure).
type Measurement struct {
	CO2Ppm           uint16
	TemperatureCenti uint16 // °C x 100
	HumidityCenti    uint16 // %RH x 100
	Error            bool
}

// ------------------------
// Display
// ------------------------

// DisplayState mirrors the visible fields of the panel.
type DisplayState struct {
	CO2Ppm           uint16
	TemperatureCenti uint16
	HumidityCenti    uint16
	Hours            uint8 // Unset when never shown
	Minutes          uint8 // Unset when never shown
	BatteryPercent   uint8
	USBConnected     bool
	Error            bool
}

// BlankDisplay is the state of a panel nothing has been drawn on.
func BlankDisplay() DisplayState {
	return DisplayState{Hours: Unset, Minutes: Unset}
}

// Region is a rectangle in display coordinates.
type Region struct {
	X, Y, W, H int16
}

func (r Region) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Overlaps reports whether r and o share at least one pixel.
func (r Region) Overlaps(o Region) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Union returns the smallest region covering both r and o. An empty operand
// is ignored.
func (r Region) Union(o Region) Region {
	switch {
	case o.Empty():
		return r
	case r.Empty():
		return o
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.W, o.X+o.W), max(r.Y+r.H, o.Y+o.H)
	return Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Within reports whether r lies entirely inside a w x h surface.
func (r Region) Within(w, h int16) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.W <= w && r.Y+r.H <= h
}

// ------------------------
// Retained memory
// ------------------------

// PersistedState survives deep sleep and is reset only on cold boot.
//
// Invariants:
//   - BatteryPercent in [0,100]
//   - CO2Ppm is only replaced by a sampled value > 0
//   - DisplayRefreshCounter <= full refresh interval; reaching it forces a full refresh next cycle
type PersistedState struct {
	CO2Ppm                uint16
	TemperatureCenti      uint16
	HumidityCenti         uint16
	BatteryVoltageMv      uint32
	BatteryPercent        uint8
	WakeCount             uint16
	DisplayRefreshCounter uint16
	Error                 bool
	SensorConfig          SensorConfig

	// LastShown is what the panel physically shows; valid when HasShown.
	LastShown DisplayState
	HasShown  bool
}
