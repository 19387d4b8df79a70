package telemetry

import (
	"errors"
	"time"

	logger "github.com/d2r2/go-logger"

	"airnode-go/errcode"
)

var lg = logger.NewPackageLogger("telemetry", logger.InfoLevel)

// Advertiser is the radio capability.
type Advertiser interface {
	Advertise(serviceUUID uint16, payload []byte, interval time.Duration) error
	StopAdvertising() error
}

// Broadcaster advertises a frame for Window, then stops.
type Broadcaster struct {
	Adv         Advertiser
	ServiceUUID uint16
	Interval    time.Duration
	Window      time.Duration
	// Wait blocks for the advertising window. Default time.Sleep.
	Wait func(time.Duration)
}

// Broadcast is best-effort: failures come back as radio_failure for the
// caller to log. The advertiser is stopped on every path.
func (b *Broadcaster) Broadcast(f Frame) error {
	wait := b.Wait
	if wait == nil {
		wait = time.Sleep
	}
	uuid := b.ServiceUUID
	if uuid == 0 {
		uuid = ServiceUUID
	}

	advErr := b.Adv.Advertise(uuid, f[:], b.Interval)
	if advErr == nil {
		lg.Debugf("advertising % x for %v", f[:], b.Window)
		wait(b.Window)
	}
	stopErr := b.Adv.StopAdvertising()
	return errcode.Wrap(errcode.RadioFailure, "broadcast", errors.Join(advErr, stopErr))
}
