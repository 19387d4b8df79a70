package ble

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"tinygo.org/x/bluetooth"
)

type fakeAdv struct {
	opts     []bluetooth.AdvertisementOptions
	started  int
	stopped  int
	startErr error
}

func (f *fakeAdv) Configure(o bluetooth.AdvertisementOptions) error {
	f.opts = append(f.opts, o)
	return nil
}

func (f *fakeAdv) Start() error {
	f.started++
	return f.startErr
}

func (f *fakeAdv) Stop() error {
	f.stopped++
	return nil
}

func TestAdvertiseCarriesServiceData(t *testing.T) {
	c := qt.New(t)
	fake := &fakeAdv{}
	a := &Advertiser{LocalName: "SmartCo2", adv: fake}

	payload := []byte{0x40, 0x01, 0x52}
	c.Assert(a.Advertise(0xFCD2, payload, 100*time.Millisecond), qt.IsNil)
	payload[0] = 0

	c.Assert(fake.opts, qt.HasLen, 1)
	o := fake.opts[0]
	c.Assert(o.LocalName, qt.Equals, "SmartCo2")
	c.Assert(o.ServiceData, qt.HasLen, 1)
	c.Assert(o.ServiceData[0].UUID, qt.Equals, bluetooth.New16BitUUID(0xFCD2))
	c.Assert(o.ServiceData[0].Data, qt.DeepEquals, []byte{0x40, 0x01, 0x52})
	c.Assert(o.Interval, qt.Equals, bluetooth.NewDuration(100*time.Millisecond))
	c.Assert(fake.started, qt.Equals, 1)

	c.Assert(a.StopAdvertising(), qt.IsNil)
	c.Assert(fake.stopped, qt.Equals, 1)
}

func TestAdvertiseStartError(t *testing.T) {
	c := qt.New(t)
	boom := errors.New("busy")
	a := &Advertiser{adv: &fakeAdv{startErr: boom}}
	c.Assert(a.Advertise(0xFCD2, nil, time.Second), qt.ErrorIs, boom)
}

func TestStopBeforeAdvertiseIsNoop(t *testing.T) {
	c := qt.New(t)
	c.Assert((&Advertiser{}).StopAdvertising(), qt.IsNil)
}
