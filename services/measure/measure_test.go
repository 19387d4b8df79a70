package measure

import (
	"errors"
	"testing"

	"airnode-go/drivers/scd41"
	"airnode-go/errcode"
	"airnode-go/types"
)

type fakeSensor struct {
	beginErr  error
	reading   Reading
	sampleErr error
	offsetErr error

	warm       []bool
	fast, full int
	offset     []uint16
	frc        []uint16
}

func (f *fakeSensor) Begin(warm bool) error {
	f.warm = append(f.warm, warm)
	return f.beginErr
}

func (f *fakeSensor) SampleFast() (Reading, error) {
	f.fast++
	r := f.reading
	r.CO2Ppm = 0
	return r, f.sampleErr
}

func (f *fakeSensor) SampleFull() (Reading, error) {
	f.full++
	return f.reading, f.sampleErr
}

func (f *fakeSensor) ForceRecalibrate(target uint16) (int16, error) {
	f.frc = append(f.frc, target)
	return -12, f.sampleErr
}

func (f *fakeSensor) SetTemperatureOffset(centi uint16) error {
	f.offset = append(f.offset, centi)
	return f.offsetErr
}

func TestSampleFullNoHistory(t *testing.T) {
	s := &fakeSensor{reading: Reading{CO2Ppm: 800, TemperatureCenti: 2250, HumidityCenti: 4500}}
	p := New(s, 30)
	if err := p.Begin(false, types.SensorConfig{}); err != nil {
		t.Fatal(err)
	}
	m, err := p.Sample(types.SampleFull, types.Measurement{})
	if err != nil {
		t.Fatal(err)
	}
	want := types.Measurement{CO2Ppm: 800, TemperatureCenti: 2250, HumidityCenti: 4500}
	if m != want {
		t.Fatalf("got %+v, want %+v", m, want)
	}
	if s.full != 1 || s.fast != 0 {
		t.Fatalf("full=%d fast=%d", s.full, s.fast)
	}
}

func TestSampleSmoothsAgainstPrevious(t *testing.T) {
	s := &fakeSensor{reading: Reading{CO2Ppm: 1000, TemperatureCenti: 2400, HumidityCenti: 5000}}
	p := New(s, 30)
	_ = p.Begin(true, types.SensorConfig{})
	prev := types.Measurement{CO2Ppm: 800, TemperatureCenti: 2200, HumidityCenti: 4000}

	m, err := p.Sample(types.SampleFull, prev)
	if err != nil {
		t.Fatal(err)
	}
	// 0.3*new + 0.7*prev
	if m.CO2Ppm != 860 || m.TemperatureCenti != 2260 || m.HumidityCenti != 4300 {
		t.Fatalf("got %+v", m)
	}
}

func TestSampleFastHasNoCO2(t *testing.T) {
	s := &fakeSensor{reading: Reading{CO2Ppm: 900, TemperatureCenti: 2250, HumidityCenti: 4500}}
	p := New(s, 30)
	_ = p.Begin(true, types.SensorConfig{})
	m, err := p.Sample(types.SampleFast, types.Measurement{CO2Ppm: 700})
	if err != nil {
		t.Fatal(err)
	}
	if m.CO2Ppm != 0 || s.fast != 1 {
		t.Fatalf("fast sample: %+v fast=%d", m, s.fast)
	}
}

func TestBeginFailureDegrades(t *testing.T) {
	s := &fakeSensor{beginErr: errors.New("nack")}
	p := New(s, 30)
	if err := p.Begin(false, types.SensorConfig{}); errcode.Of(err) != errcode.SensorNotDetected {
		t.Fatalf("Begin err = %v", err)
	}
	m, err := p.Sample(types.SampleFull, types.Measurement{})
	if !m.Error || errcode.Of(err) != errcode.SensorNotDetected {
		t.Fatalf("Sample = %+v, %v", m, err)
	}
	if s.full != 0 {
		t.Fatal("sensor touched after failed begin")
	}
}

func TestSampleFailureIsReadFailure(t *testing.T) {
	s := &fakeSensor{sampleErr: errors.New("garbage")}
	p := New(s, 30)
	_ = p.Begin(true, types.SensorConfig{})
	m, err := p.Sample(types.SampleFast, types.Measurement{TemperatureCenti: 2000})
	if !m.Error || m.TemperatureCenti != 0 {
		t.Fatalf("m = %+v", m)
	}
	if errcode.Of(err) != errcode.ReadFailure {
		t.Fatalf("err = %v", err)
	}
}

func TestSampleKeepsSensorErrorCode(t *testing.T) {
	s := &fakeSensor{sampleErr: errcode.Wrap(errcode.Timeout, "sample_full", errors.New("slow"))}
	p := New(s, 30)
	_ = p.Begin(true, types.SensorConfig{})
	if _, err := p.Sample(types.SampleFull, types.Measurement{}); errcode.Of(err) != errcode.Timeout {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestCalibration(t *testing.T) {
	cases := []struct {
		name       string
		cal        types.SensorConfig
		warm       bool
		offsetErr  error
		wantT      uint16
		wantH      uint16
		wantOffset []uint16
	}{
		{"positive temp offset on chip", types.SensorConfig{TemperatureOffsetCenti: 400}, false, nil, 2250, 4500, []uint16{400}},
		{"warm wake keeps chip offset", types.SensorConfig{TemperatureOffsetCenti: 400}, true, nil, 2250, 4500, nil},
		{"negative temp offset in software", types.SensorConfig{TemperatureOffsetCenti: -150}, false, nil, 2400, 4500, nil},
		{"program failure falls back", types.SensorConfig{TemperatureOffsetCenti: 400}, false, errors.New("nack"), 1850, 4500, []uint16{400}},
		{"humidity offset", types.SensorConfig{HumidityOffsetCenti: 500}, false, nil, 2250, 4000, nil},
		{"humidity clamps high", types.SensorConfig{HumidityOffsetCenti: -6000}, false, nil, 2250, 10000, nil},
		{"large negative offset, humidity clamps low", types.SensorConfig{TemperatureOffsetCenti: -32000, HumidityOffsetCenti: 5000}, false, nil, 34250, 0, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := &fakeSensor{
				reading:   Reading{CO2Ppm: 600, TemperatureCenti: 2250, HumidityCenti: 4500},
				offsetErr: c.offsetErr,
			}
			p := New(s, 30)
			if err := p.Begin(c.warm, c.cal); err != nil {
				t.Fatal(err)
			}
			m, err := p.Sample(types.SampleFull, types.Measurement{})
			if err != nil {
				t.Fatal(err)
			}
			if m.TemperatureCenti != c.wantT || m.HumidityCenti != c.wantH {
				t.Fatalf("t=%d h=%d, want t=%d h=%d", m.TemperatureCenti, m.HumidityCenti, c.wantT, c.wantH)
			}
			if len(s.offset) != len(c.wantOffset) {
				t.Fatalf("offset writes = %v, want %v", s.offset, c.wantOffset)
			}
		})
	}
}

func TestNegativeTemperatureClampsToZero(t *testing.T) {
	s := &fakeSensor{reading: Reading{TemperatureCenti: -500, HumidityCenti: 4500}}
	p := New(s, 30)
	_ = p.Begin(true, types.SensorConfig{})
	m, _ := p.Sample(types.SampleFast, types.Measurement{})
	if m.TemperatureCenti != 0 {
		t.Fatalf("t = %d, want 0", m.TemperatureCenti)
	}
}

func TestRecalibrate(t *testing.T) {
	s := &fakeSensor{}
	p := New(s, 30)
	_ = p.Begin(false, types.SensorConfig{})
	corr, err := p.Recalibrate(420)
	if err != nil || corr != -12 || len(s.frc) != 1 || s.frc[0] != 420 {
		t.Fatalf("corr=%d err=%v frc=%v", corr, err, s.frc)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want errcode.Code
	}{
		{nil, errcode.OK},
		{scd41.ErrNotDetected, errcode.SensorNotDetected},
		{scd41.ErrTimeout, errcode.Timeout},
		{scd41.ErrNotReady, errcode.NotReady},
		{scd41.ErrCRC, errcode.CRCMismatch},
		{scd41.ErrFRCFailed, errcode.ReadFailure},
		{errors.Join(scd41.ErrNotDetected, errors.New("nack")), errcode.SensorNotDetected},
	}
	for _, c := range cases {
		if got := errcode.Of(classify("op", c.err)); got != c.want {
			t.Fatalf("classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}
