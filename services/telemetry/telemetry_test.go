package telemetry

import (
	"errors"
	"testing"
	"time"

	"airnode-go/errcode"
	"airnode-go/types"
)

func TestEncodeFixture(t *testing.T) {
	m := types.Measurement{CO2Ppm: 800, TemperatureCenti: 2250, HumidityCenti: 4500}
	got := Encode(m, 4100, 82)
	want := Frame{0x40, 0x01, 0x52, 0x03, 0x94, 0x11, 0x02, 0xCA, 0x08, 0x12, 0x20, 0x03, 0x0C, 0x04, 0x10}
	if got != want {
		t.Fatalf("Encode = % x\nwant     % x", got, want)
	}
}

func TestEncodeTruncatesVoltage(t *testing.T) {
	f := Encode(types.Measurement{}, 65536+4100, 0)
	d, err := Decode(f[:])
	if err != nil {
		t.Fatal(err)
	}
	if d.VoltageMv != 4100 {
		t.Fatalf("voltage = %d, want 4100", d.VoltageMv)
	}
}

func TestDecodeRecoversFields(t *testing.T) {
	m := types.Measurement{CO2Ppm: 65535, TemperatureCenti: 1, HumidityCenti: 10000}
	f := Encode(m, 3300, 100)
	d, err := Decode(f[:])
	if err != nil {
		t.Fatal(err)
	}
	want := Decoded{BatteryPercent: 100, HumidityCenti: 10000, TemperatureCenti: 1, CO2Ppm: 65535, VoltageMv: 3300}
	if d != want {
		t.Fatalf("got %+v, want %+v", d, want)
	}
}

func TestDecodeRejects(t *testing.T) {
	f := Encode(types.Measurement{}, 0, 0)
	if _, err := Decode(f[:14]); !errors.Is(err, ErrBadFrame) {
		t.Fatal("short frame accepted")
	}
	f[offCO2] = 0x13
	if _, err := Decode(f[:]); !errors.Is(err, ErrBadFrame) {
		t.Fatal("wrong object id accepted")
	}
}

type fakeAdv struct {
	advErr, stopErr error
	uuid            uint16
	payload         []byte
	interval        time.Duration
	stops           int
}

func (a *fakeAdv) Advertise(uuid uint16, p []byte, iv time.Duration) error {
	a.uuid, a.payload, a.interval = uuid, append([]byte(nil), p...), iv
	return a.advErr
}

func (a *fakeAdv) StopAdvertising() error {
	a.stops++
	return a.stopErr
}

func TestBroadcastAdvertisesForWindowThenStops(t *testing.T) {
	adv := &fakeAdv{}
	var waited time.Duration
	b := &Broadcaster{Adv: adv, Interval: 100 * time.Millisecond, Window: time.Second,
		Wait: func(d time.Duration) { waited += d }}

	f := Encode(types.Measurement{CO2Ppm: 800}, 4100, 82)
	if err := b.Broadcast(f); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if adv.uuid != ServiceUUID || adv.interval != 100*time.Millisecond || len(adv.payload) != FrameLen {
		t.Fatalf("advertised %+v", adv)
	}
	if waited != time.Second || adv.stops != 1 {
		t.Fatalf("waited=%v stops=%d", waited, adv.stops)
	}
}

func TestBroadcastStopsEvenWhenAdvertiseFails(t *testing.T) {
	adv := &fakeAdv{advErr: errors.New("no adapter")}
	waited := false
	b := &Broadcaster{Adv: adv, Window: time.Second, Wait: func(time.Duration) { waited = true }}

	err := b.Broadcast(Frame{})
	if errcode.Of(err) != errcode.RadioFailure {
		t.Fatalf("err = %v, want radio_failure", err)
	}
	if waited {
		t.Fatal("waited after failed advertise")
	}
	if adv.stops != 1 {
		t.Fatalf("stops = %d, want 1", adv.stops)
	}
}
