//go:build rp2040 || rp2350

package rp2

import (
	"tinygo.org/x/drivers/waveshare-epd/epd4in2"

	"airnode-go/platform/epd"
)

// newPanel powers the Waveshare 4.2" module on once at boot. After that the
// panel talks to the controller through commands only, so the driver's
// unbounded busy waits in Display and DeepSleep are never reached.
func newPanel(dev *epd4in2.Device, cfg epd4in2.Config) *epd.Panel {
	dev.Configure(cfg)
	w, h := dev.Size()
	return epd.New(dev, w, h, epd.Options{})
}
