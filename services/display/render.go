// Package display renders DisplayState onto an e-paper panel, repainting only
// the regions whose values changed unless a full refresh is due.
package display

import (
	"image/color"
	"time"

	logger "github.com/d2r2/go-logger"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
	"tinygo.org/x/tinyfont"

	"airnode-go/errcode"
	"airnode-go/types"
	"airnode-go/x/conv"
)

var lg = logger.NewPackageLogger("display", logger.InfoLevel)

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Panel is the e-paper capability: a pixel buffer plus refresh control.
type Panel interface {
	drivers.Displayer
	// Paint transfers window from the buffer to the glass. full selects the
	// full (flashing) waveform over the whole panel.
	Paint(window types.Region, full bool) error
	// Busy reports whether the panel is still refreshing.
	Busy() bool
	// Hibernate puts the panel into its lowest-power state.
	Hibernate() error
}

// WindowCoalescer is implemented by panels whose every refresh drives the
// whole glass. A partial update reaches such a panel as one Paint of the
// smallest region covering all changed windows.
type WindowCoalescer interface {
	CoalesceWindows() bool
}

// Options tune the renderer.
type Options struct {
	ShowClock   bool
	ShowBorders bool
	BusyPoll    time.Duration // default 3 ms
	BusyTimeout time.Duration // default 20 s
	// Wait is the low-power wait used while the panel is busy. Default time.Sleep.
	Wait func(time.Duration)
}

type Renderer struct {
	panel  Panel
	layout Layout
	opts   Options
	buf    [8]byte
}

// New computes the layout for the panel's size.
func New(p Panel, opts Options) (*Renderer, error) {
	if opts.BusyPoll <= 0 {
		opts.BusyPoll = 3 * time.Millisecond
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 20 * time.Second
	}
	if opts.Wait == nil {
		opts.Wait = time.Sleep
	}
	w, h := p.Size()
	l, err := NewLayout(w, h)
	if err != nil {
		return nil, err
	}
	return &Renderer{panel: p, layout: l, opts: opts}, nil
}

func (r *Renderer) Layout() Layout { return r.layout }

// Render brings the panel from prev to cur and returns what the panel now
// shows. With nothing dirty and full unset it touches no hardware at all.
// On failure prev is returned unchanged, so the next cycle redraws.
func (r *Renderer) Render(cur, prev types.DisplayState, full bool) (types.DisplayState, error) {
	dirty := Dirty(cur, prev, r.opts.ShowClock)
	if !full && dirty == 0 {
		lg.Debugf("nothing dirty, skipping refresh")
		return prev, nil
	}

	var err error
	if full {
		lg.Debugf("full refresh")
		err = r.renderFull(cur)
	} else {
		lg.Debugf("partial refresh: %s", dirty)
		err = r.renderPartial(cur, dirty)
	}

	herr := r.panel.Hibernate()
	if err != nil {
		return prev, errcode.Wrap(errcode.DisplayFailure, "render", err)
	}
	if herr != nil {
		// The glass shows cur even if the controller did not go to sleep.
		return cur, errcode.Wrap(errcode.DisplayFailure, "hibernate", herr)
	}
	return cur, nil
}

func (r *Renderer) renderFull(cur types.DisplayState) error {
	l := &r.layout
	screen := types.Region{W: l.Width, H: l.Height}
	if err := r.clear(screen); err != nil {
		return err
	}
	r.drawContent(r.panel, cur)
	if r.clockShown(cur) {
		r.drawClock(r.clip(l.Clock), cur)
	}
	r.drawBattery(r.clip(l.Battery), cur)
	if r.opts.ShowBorders {
		for _, reg := range []types.Region{l.Clock, l.Battery, l.CO2, l.Humidity, l.Temperature} {
			_ = tinydraw.Rectangle(r.panel, reg.X, reg.Y, reg.W, reg.H, black)
		}
	}
	return r.paint(screen, true)
}

func (r *Renderer) renderPartial(cur types.DisplayState, dirty FieldSet) error {
	l := &r.layout

	var windows []types.Region
	switch {
	case dirty.Has(FieldError):
		if err := r.clear(l.Content); err != nil {
			return err
		}
		r.drawContent(r.clip(l.Content), cur)
		windows = append(windows, l.Content)
	case !cur.Error:
		for _, f := range []FieldSet{FieldCO2, FieldTemperature, FieldHumidity} {
			if !dirty.Has(f) {
				continue
			}
			reg := l.Region(f)
			if err := r.clear(reg); err != nil {
				return err
			}
			r.drawField(r.clip(reg), f, cur)
			windows = append(windows, reg)
		}
	}
	if dirty.Has(FieldClock) {
		if err := r.clear(l.Clock); err != nil {
			return err
		}
		r.drawClock(r.clip(l.Clock), cur)
		windows = append(windows, l.Clock)
	}

	// The battery indicator is redrawn on every refresh.
	if err := r.clear(l.Battery); err != nil {
		return err
	}
	r.drawBattery(r.clip(l.Battery), cur)
	windows = append(windows, l.Battery)

	if c, ok := r.panel.(WindowCoalescer); ok && c.CoalesceWindows() {
		u := windows[0]
		for _, w := range windows[1:] {
			u = u.Union(w)
		}
		windows = []types.Region{u}
	}
	for _, w := range windows {
		if err := r.paint(w, false); err != nil {
			return err
		}
	}
	return nil
}

// paint pushes one window and waits, in low-power steps, for the panel to
// finish. The wait is bounded by BusyTimeout.
func (r *Renderer) paint(w types.Region, full bool) error {
	if err := r.panel.Paint(w, full); err != nil {
		return err
	}
	polls := int(r.opts.BusyTimeout / r.opts.BusyPoll)
	for i := 0; r.panel.Busy(); i++ {
		if i >= polls {
			return errcode.Timeout
		}
		r.opts.Wait(r.opts.BusyPoll)
	}
	return nil
}

func (r *Renderer) clear(reg types.Region) error {
	return tinydraw.FilledRectangle(r.panel, reg.X, reg.Y, reg.W, reg.H, white)
}

func (r *Renderer) clockShown(cur types.DisplayState) bool {
	return r.opts.ShowClock && cur.Hours != types.Unset && cur.Minutes != types.Unset
}

// ---- drawing ----

// drawContent draws everything below the status row: the error glyphs, or
// the separators and all three fields.
func (r *Renderer) drawContent(d drivers.Displayer, cur types.DisplayState) {
	l := &r.layout
	if cur.Error {
		f := l.Fonts.CO2
		mid := l.Content.Y + l.Content.H/2
		r.centered(d, f, l.Width/2, mid-2, "SENSOR")
		r.centered(d, f, l.Width/2, mid+ascent(f)+2, "ERROR")
		return
	}
	tinydraw.Line(d, margin, l.SplitY, l.Width-margin, l.SplitY, black)
	tinydraw.Line(d, l.SplitX, l.SplitY, l.SplitX, l.Height-margin, black)
	for _, f := range []FieldSet{FieldCO2, FieldTemperature, FieldHumidity} {
		r.drawField(r.clipOn(d, l.Region(f)), f, cur)
	}
}

func (r *Renderer) drawField(d drivers.Displayer, f FieldSet, cur types.DisplayState) {
	l := &r.layout
	fs := &l.Fonts
	switch f {
	case FieldCO2:
		if cur.CO2Ppm == 0 {
			r.labelled(d, l.CO2, fs.LabelCO2, fs.CO2, "--", unitCO2)
			return
		}
		r.labelled(d, l.CO2, fs.LabelCO2, fs.CO2, string(conv.Utoa(r.buf[:], cur.CO2Ppm)), unitCO2)
	case FieldTemperature:
		r.labelled(d, l.Temperature, fs.LabelTemperature, fs.Value, string(conv.Tenths(r.buf[:], cur.TemperatureCenti)), unitTemp)
	case FieldHumidity:
		r.labelled(d, l.Humidity, fs.LabelHumidity, fs.Value, string(conv.Whole(r.buf[:], cur.HumidityCenti)), unitHumidity)
	}
}

// labelled draws a centred label at the top of reg and the value with its
// unit centred in the remaining space.
func (r *Renderer) labelled(d drivers.Displayer, reg types.Region, label string, vf *tinyfont.Font, value, unit string) {
	fs := &r.layout.Fonts
	cx := reg.X + reg.W/2
	r.centered(d, fs.Label, cx, reg.Y+ascent(fs.Label), label)

	labelH := lineHeight(fs.Label)
	gap := (reg.H - labelH - lineHeight(vf)) / 2
	baseline := reg.Y + labelH + gap + ascent(vf)

	vw := textWidth(vf, value)
	x := cx - r.layout.valueWidth(vf, value, unit)/2
	tinyfont.WriteLine(d, vf, x, baseline, value, black)
	tinyfont.WriteLine(d, fs.Unit, x+vw+fs.UnitGap, baseline, unit, black)
}

func (r *Renderer) drawClock(d drivers.Displayer, cur types.DisplayState) {
	l := &r.layout
	var b [6]byte
	copy(b[0:2], conv.Pad2(r.buf[:3], cur.Hours))
	b[2] = ':'
	copy(b[3:5], conv.Pad2(r.buf[:3], cur.Minutes))
	tinyfont.WriteLine(d, l.Fonts.Status, l.Clock.X, l.Clock.Y+ascent(l.Fonts.Status), string(b[:5]), black)
}

func (r *Renderer) drawBattery(d drivers.Displayer, cur types.DisplayState) {
	l := &r.layout
	s := "USB"
	if !cur.USBConnected {
		s = string(conv.Utoa(r.buf[:], cur.BatteryPercent)) + "%"
	}
	// right-aligned
	x := l.Battery.X + l.Battery.W - textWidth(l.Fonts.Status, s)
	tinyfont.WriteLine(d, l.Fonts.Status, x, l.Battery.Y+ascent(l.Fonts.Status), s, black)
}

func (r *Renderer) centered(d drivers.Displayer, f *tinyfont.Font, cx, baseline int16, s string) {
	tinyfont.WriteLine(d, f, cx-textWidth(f, s)/2, baseline, s, black)
}

// ---- clipping ----

// clipped drops pixels outside its region so a partial window never picks
// up strokes that belong to a neighbour.
type clipped struct {
	d drivers.Displayer
	r types.Region
}

func (r *Renderer) clip(reg types.Region) drivers.Displayer { return r.clipOn(r.panel, reg) }

func (r *Renderer) clipOn(d drivers.Displayer, reg types.Region) drivers.Displayer {
	return clipped{d: d, r: reg}
}

func (c clipped) Size() (int16, int16) { return c.d.Size() }

func (c clipped) SetPixel(x, y int16, col color.RGBA) {
	if x < c.r.X || y < c.r.Y || x >= c.r.X+c.r.W || y >= c.r.Y+c.r.H {
		return
	}
	c.d.SetPixel(x, y, col)
}

func (c clipped) Display() error { return nil }
