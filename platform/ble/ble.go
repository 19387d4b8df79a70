// Package ble is the radio for boards with a Bluetooth LE controller: it
// puts the telemetry frame into the service-data field of a non-connectable
// advertisement.
package ble

import (
	"sync"
	"time"

	logger "github.com/d2r2/go-logger"
	"tinygo.org/x/bluetooth"
)

var lg = logger.NewPackageLogger("ble", logger.InfoLevel)

type advertisement interface {
	Configure(options bluetooth.AdvertisementOptions) error
	Start() error
	Stop() error
}

// Advertiser implements telemetry.Advertiser on a bluetooth adapter.
type Advertiser struct {
	LocalName string

	mu      sync.Mutex
	adapter *bluetooth.Adapter
	adv     advertisement
	enabled bool
}

// New returns an advertiser on the default adapter. The adapter is enabled
// on first use.
func New(localName string) *Advertiser {
	return &Advertiser{LocalName: localName, adapter: bluetooth.DefaultAdapter}
}

func (a *Advertiser) enable() error {
	if a.enabled {
		return nil
	}
	if a.adv == nil {
		if err := a.adapter.Enable(); err != nil {
			return err
		}
		a.adv = a.adapter.DefaultAdvertisement()
	}
	a.enabled = true
	return nil
}

// Advertise implements telemetry.Advertiser.
func (a *Advertiser) Advertise(serviceUUID uint16, payload []byte, interval time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enable(); err != nil {
		return err
	}
	opts := bluetooth.AdvertisementOptions{
		LocalName: a.LocalName,
		ServiceData: []bluetooth.ServiceDataElement{{
			UUID: bluetooth.New16BitUUID(serviceUUID),
			Data: append([]byte(nil), payload...),
		}},
		Interval: bluetooth.NewDuration(interval),
	}
	if err := a.adv.Configure(opts); err != nil {
		return err
	}
	lg.Debugf("advertising %d bytes every %v", len(payload), interval)
	return a.adv.Start()
}

// StopAdvertising implements telemetry.Advertiser.
func (a *Advertiser) StopAdvertising() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.adv == nil {
		return nil
	}
	return a.adv.Stop()
}
