// Package epd drives a UC8176-class 1-bit e-paper controller, the chip on the
// Waveshare 4.2" module, through its command interface. The image is composed
// in an fb.Panel so it survives the controller's deep sleep, and each Paint
// sends it with a single refresh. Nothing here blocks on the busy line
// without a bound.
package epd

import (
	"image/color"
	"time"

	logger "github.com/d2r2/go-logger"

	"airnode-go/errcode"
	"airnode-go/platform/fb"
	"airnode-go/types"
)

var lg = logger.NewPackageLogger("epd", logger.InfoLevel)

// Controller commands.
const (
	cmdPanelSetting     = 0x00
	cmdPowerSetting     = 0x01
	cmdPowerOff         = 0x02
	cmdPowerOn          = 0x04
	cmdBoosterSoftStart = 0x06
	cmdDeepSleep        = 0x07
	cmdDataStart1       = 0x10
	cmdDisplayRefresh   = 0x12
	cmdDataStart2       = 0x13
	cmdPLLControl       = 0x30
	cmdVCOMInterval     = 0x50
	cmdResolution       = 0x61
	cmdVCMDC            = 0x82

	deepSleepCheck = 0xA5
)

// Controller is the command surface of the panel, as epd4in2.Device exposes it.
type Controller interface {
	Reset()
	SendCommand(uint8)
	SendData(uint8)
	SetLUT()
	IsBusy() bool
}

type Options struct {
	// Poll and Timeout bound the waits the panel does itself: power on and
	// power off. The refresh wait belongs to the caller through Busy.
	Poll    time.Duration // default 10 ms
	Timeout time.Duration // default 5 s
	// Settle is the pause after a refresh command before Busy is meaningful.
	Settle time.Duration // default 100 ms
	Wait   func(time.Duration)
}

type Panel struct {
	ctl    Controller
	shadow *fb.Panel
	opts   Options
	row    []byte

	sleeping bool
	// Refreshes counts DISPLAY_REFRESH commands sent.
	Refreshes int
}

// New returns a panel for a controller that has already been powered on.
// w must be a multiple of 8.
func New(ctl Controller, w, h int16, opts Options) *Panel {
	if opts.Poll <= 0 {
		opts.Poll = 10 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Settle <= 0 {
		opts.Settle = 100 * time.Millisecond
	}
	if opts.Wait == nil {
		opts.Wait = time.Sleep
	}
	return &Panel{ctl: ctl, shadow: fb.New(w, h), opts: opts, row: make([]byte, w/8)}
}

func (p *Panel) Size() (int16, int16) { return p.shadow.Size() }

func (p *Panel) SetPixel(x, y int16, c color.RGBA) { p.shadow.SetPixel(x, y, c) }

func (p *Panel) Display() error {
	w, h := p.shadow.Size()
	return p.Paint(types.Region{W: w, H: h}, true)
}

// CoalesceWindows implements display.WindowCoalescer. The controller has no
// windowed refresh, so every Paint redraws the glass.
func (p *Panel) CoalesceWindows() bool { return true }

// Paint implements display.Panel. It returns once the refresh has started.
func (p *Panel) Paint(window types.Region, full bool) error {
	if err := p.shadow.Paint(window, full); err != nil {
		return err
	}
	if p.sleeping {
		if err := p.powerOn(); err != nil {
			return err
		}
	}
	w, h := p.shadow.Size()
	c := p.ctl
	c.SendCommand(cmdResolution)
	c.SendData(uint8(w >> 8))
	c.SendData(uint8(w))
	c.SendData(uint8(h >> 8))
	c.SendData(uint8(h))
	c.SendCommand(cmdVCMDC)
	c.SendData(0x12)
	c.SendCommand(cmdVCOMInterval)
	c.SendData(0x97)

	// old image all white, new image from the glass
	c.SendCommand(cmdDataStart1)
	for i := 0; i < int(w/8)*int(h); i++ {
		c.SendData(0xFF)
	}
	c.SendCommand(cmdDataStart2)
	for y := int16(0); y < h; y++ {
		for _, b := range p.pack(y) {
			c.SendData(b)
		}
	}
	c.SetLUT()
	c.SendCommand(cmdDisplayRefresh)
	p.Refreshes++
	p.opts.Wait(p.opts.Settle)
	return nil
}

// pack encodes row y of the glass, MSB first, with a set bit for paper.
func (p *Panel) pack(y int16) []byte {
	for i := range p.row {
		var b byte
		for bit := int16(0); bit < 8; bit++ {
			if !p.shadow.Ink(int16(i)*8+bit, y) {
				b |= 0x80 >> bit
			}
		}
		p.row[i] = b
	}
	return p.row
}

func (p *Panel) Busy() bool { return p.ctl.IsBusy() }

// Hibernate powers the controller off and puts it into deep sleep. The next
// Paint resets it.
func (p *Panel) Hibernate() error {
	if p.sleeping {
		return nil
	}
	c := p.ctl
	c.SendCommand(cmdVCOMInterval)
	c.SendData(0x17) // border floating
	c.SendCommand(cmdVCMDC)
	c.SendData(0x00)
	c.SendCommand(cmdPowerSetting)
	for i := 0; i < 5; i++ {
		c.SendData(0x00)
	}
	c.SendCommand(cmdPowerOff)
	if err := p.idle("power off"); err != nil {
		return err
	}
	c.SendCommand(cmdDeepSleep)
	c.SendData(deepSleepCheck)
	p.sleeping = true
	return nil
}

// powerOn repeats the controller's init sequence after a deep sleep.
func (p *Panel) powerOn() error {
	c := p.ctl
	c.Reset()
	c.SendCommand(cmdPowerSetting)
	for _, b := range []byte{0x03, 0x00, 0x2b, 0x2b, 0xff} {
		c.SendData(b)
	}
	c.SendCommand(cmdBoosterSoftStart)
	for i := 0; i < 3; i++ {
		c.SendData(0x17)
	}
	c.SendCommand(cmdPowerOn)
	if err := p.idle("power on"); err != nil {
		return err
	}
	c.SendCommand(cmdPanelSetting)
	c.SendData(0xbf)
	c.SendData(0x0b)
	c.SendCommand(cmdPLLControl)
	c.SendData(0x3c)
	p.sleeping = false
	return nil
}

func (p *Panel) idle(step string) error {
	polls := int(p.opts.Timeout / p.opts.Poll)
	for i := 0; p.ctl.IsBusy(); i++ {
		if i >= polls {
			lg.Errorf("%s: still busy after %s", step, p.opts.Timeout)
			return errcode.Timeout
		}
		p.opts.Wait(p.opts.Poll)
	}
	return nil
}
