package display

import (
	"errors"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"

	"airnode-go/types"
)

const margin = 2

// FontSet is one size class of the layout.
type FontSet struct {
	Status *tinyfont.Font // clock and battery
	Label  *tinyfont.Font
	CO2    *tinyfont.Font
	Value  *tinyfont.Font // temperature and humidity
	Unit   *tinyfont.Font

	UnitGap int16

	LabelCO2, LabelHumidity, LabelTemperature string
}

var (
	largeFonts = FontSet{
		Status:           &freemono.Bold12pt7b,
		Label:            &freemono.Bold12pt7b,
		CO2:              &freemono.Bold24pt7b,
		Value:            &freemono.Bold24pt7b,
		Unit:             &freemono.Bold9pt7b,
		UnitGap:          12,
		LabelCO2:         "CO2",
		LabelHumidity:    "Humidity",
		LabelTemperature: "Temperature",
	}
	smallFonts = FontSet{
		Status:           &freemono.Bold9pt7b,
		Label:            &freemono.Bold9pt7b,
		CO2:              &freemono.Bold18pt7b,
		Value:            &freemono.Bold12pt7b,
		Unit:             &freemono.Bold9pt7b,
		UnitGap:          4,
		LabelCO2:         "CO2",
		LabelHumidity:    "Humidity",
		LabelTemperature: "Temp",
	}
	fontSets = []FontSet{largeFonts, smallFonts}
)

// Widest strings each field can show.
const (
	widestCO2      = "65535"
	widestTemp     = "655.4"
	widestHumidity = "100"
	widestClock    = "88:88"
	widestBattery  = "100%"
	unitCO2        = "ppm"
	unitTemp       = "C"
	unitHumidity   = "%"
)

var ErrNoFit = errors.New("display: no font set fits the panel")

// Layout holds the regions of every field. It is computed once from font
// metrics and never changes afterwards.
//
//	+---------------------------+
//	| clock             battery |  status row
//	|            CO2            |
//	|         812 ppm           |
//	+-------------+-------------+  SplitY
//	|  Humidity   | Temperature |
//	|    45 %     |   22.5 C    |
//	+-------------+-------------+
//	              SplitX
type Layout struct {
	Width, Height  int16
	Fonts          FontSet
	SplitX, SplitY int16

	Clock, Battery types.Region
	CO2            types.Region
	Humidity       types.Region
	Temperature    types.Region
	Content        types.Region // everything below the status row
}

// NewLayout picks the largest font set whose widest values fit a w x h panel.
func NewLayout(w, h int16) (Layout, error) {
	for _, fs := range fontSets {
		if l, ok := layoutFor(w, h, fs); ok {
			return l, nil
		}
	}
	return Layout{}, ErrNoFit
}

func layoutFor(w, h int16, fs FontSet) (Layout, bool) {
	l := Layout{Width: w, Height: h, Fonts: fs, SplitX: w / 2, SplitY: h / 2}

	statusH := lineHeight(fs.Status)
	clockW := textWidth(fs.Status, widestClock)
	battW := textWidth(fs.Status, widestBattery)
	l.Clock = types.Region{X: margin, Y: margin, W: clockW, H: statusH}
	l.Battery = types.Region{X: w - margin - battW, Y: margin, W: battW, H: statusH}

	top := margin + statusH + 1
	l.Content = types.Region{X: 0, Y: top, W: w, H: h - top}
	l.CO2 = types.Region{X: margin, Y: top, W: w - 2*margin, H: l.SplitY - top}
	l.Humidity = types.Region{X: margin, Y: l.SplitY + 1, W: l.SplitX - margin - 1, H: h - margin - l.SplitY - 1}
	l.Temperature = types.Region{X: l.SplitX + 1, Y: l.SplitY + 1, W: w - margin - l.SplitX - 1, H: h - margin - l.SplitY - 1}

	if l.Clock.Overlaps(l.Battery) || l.Clock.X+l.Clock.W+margin > l.Battery.X {
		return l, false
	}
	fits := func(r types.Region, label string, vf *tinyfont.Font, value, unit string) bool {
		need := l.valueWidth(vf, value, unit)
		if lw := textWidth(fs.Label, label); lw > need {
			need = lw
		}
		return !r.Empty() && r.Within(w, h) && need <= r.W &&
			lineHeight(fs.Label)+lineHeight(vf) <= r.H
	}
	ok := fits(l.CO2, fs.LabelCO2, fs.CO2, widestCO2, unitCO2) &&
		fits(l.Humidity, fs.LabelHumidity, fs.Value, widestHumidity, unitHumidity) &&
		fits(l.Temperature, fs.LabelTemperature, fs.Value, widestTemp, unitTemp) &&
		l.Clock.Within(w, h) && l.Battery.Within(w, h)
	return l, ok
}

// Region returns the region of a single field.
func (l *Layout) Region(f FieldSet) types.Region {
	switch f {
	case FieldCO2:
		return l.CO2
	case FieldTemperature:
		return l.Temperature
	case FieldHumidity:
		return l.Humidity
	case FieldClock:
		return l.Clock
	case FieldBattery:
		return l.Battery
	case FieldError:
		return l.Content
	}
	return types.Region{}
}

func (l *Layout) valueWidth(vf *tinyfont.Font, value, unit string) int16 {
	return textWidth(vf, value) + l.Fonts.UnitGap + textWidth(l.Fonts.Unit, unit)
}

func textWidth(f *tinyfont.Font, s string) int16 {
	_, outbox := tinyfont.LineWidth(f, s)
	return int16(outbox)
}

func lineHeight(f *tinyfont.Font) int16 { return int16(f.YAdvance) }

// ascent approximates the distance from the top of a line to its baseline.
func ascent(f *tinyfont.Font) int16 { return int16(f.YAdvance) * 3 / 4 }
