// Package fb is an in-memory 1-bit e-paper panel. It keeps the host-side
// buffer and the image on the glass apart: drawing only touches the buffer,
// and Paint copies a window of it to the glass. Across a deep sleep the
// buffer is lost but the glass keeps its image, exactly like the hardware.
package fb

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"airnode-go/types"
)

type Panel struct {
	w, h  int16
	ram   []bool // true = black
	glass []bool

	// BusyPolls is how many Busy calls report true after each Paint.
	BusyPolls int
	busyLeft  int

	Paints      int
	FullPaints  int
	Hibernated  bool
	PixelWrites int
}

func New(w, h int16) *Panel {
	n := int(w) * int(h)
	return &Panel{w: w, h: h, ram: make([]bool, n), glass: make([]bool, n)}
}

func (p *Panel) Size() (int16, int16) { return p.w, p.h }

func (p *Panel) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return
	}
	p.PixelWrites++
	// BT.601 luma, dark is ink
	luma := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
	p.ram[int(y)*int(p.w)+int(x)] = luma < 128
}

// Display paints the whole buffer with the full waveform.
func (p *Panel) Display() error {
	return p.Paint(types.Region{W: p.w, H: p.h}, true)
}

func (p *Panel) Paint(win types.Region, full bool) error {
	if full {
		win = types.Region{W: p.w, H: p.h}
		p.FullPaints++
	}
	p.Paints++
	p.Hibernated = false
	for y := max(win.Y, 0); y < min(win.Y+win.H, p.h); y++ {
		row := int(y) * int(p.w)
		for x := max(win.X, 0); x < min(win.X+win.W, p.w); x++ {
			p.glass[row+int(x)] = p.ram[row+int(x)]
		}
	}
	p.busyLeft = p.BusyPolls
	return nil
}

func (p *Panel) Busy() bool {
	if p.busyLeft > 0 {
		p.busyLeft--
		return true
	}
	return false
}

func (p *Panel) Hibernate() error {
	p.Hibernated = true
	return nil
}

// LoseRAM clears the host buffer, as a deep sleep does.
func (p *Panel) LoseRAM() {
	clear(p.ram)
}

// Ink reports whether the glass shows ink at x, y.
func (p *Panel) Ink(x, y int16) bool {
	return p.glass[int(y)*int(p.w)+int(x)]
}

// InkIn counts inked glass pixels inside r.
func (p *Panel) InkIn(r types.Region) int {
	n := 0
	for y := max(r.Y, 0); y < min(r.Y+r.H, p.h); y++ {
		for x := max(r.X, 0); x < min(r.X+r.W, p.w); x++ {
			if p.Ink(x, y) {
				n++
			}
		}
	}
	return n
}

// Image renders the glass as a black-and-white image.
func (p *Panel) Image() *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, int(p.w), int(p.h)), color.Palette{color.White, color.Black})
	for i, ink := range p.glass {
		if ink {
			img.Pix[i] = 1
		}
	}
	return img
}

// WritePNG encodes the glass as PNG.
func (p *Panel) WritePNG(w io.Writer) error {
	return png.Encode(w, p.Image())
}
