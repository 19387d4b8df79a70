package sim

import (
	"errors"
	"time"

	"airnode-go/services/telemetry"
)

var ErrRadio = errors.New("sim: radio fault")

// Radio records every advertisement instead of transmitting it.
type Radio struct {
	clock *Clock

	Fail    bool
	Frames  []Advert
	running bool
}

// Advert is one recorded advertisement.
type Advert struct {
	At          time.Time
	ServiceUUID uint16
	Payload     telemetry.Frame
	Interval    time.Duration
}

func NewRadio(clock *Clock) *Radio { return &Radio{clock: clock} }

// Advertise implements telemetry.Advertiser.
func (r *Radio) Advertise(uuid uint16, payload []byte, interval time.Duration) error {
	if r.Fail {
		return ErrRadio
	}
	a := Advert{At: r.clock.Now(), ServiceUUID: uuid, Interval: interval}
	copy(a.Payload[:], payload)
	r.Frames = append(r.Frames, a)
	r.running = true
	lg.Debugf("adv uuid=%04x % x", uuid, payload)
	return nil
}

func (r *Radio) StopAdvertising() error {
	r.running = false
	return nil
}

// Advertising reports whether an advertisement is still running.
func (r *Radio) Advertising() bool { return r.running }
