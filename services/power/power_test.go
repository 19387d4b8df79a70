package power

import (
	"errors"
	"testing"

	"airnode-go/errcode"
)

func TestPercentClamps(t *testing.T) {
	p := DefaultParams
	cases := []struct {
		mv   uint32
		want uint8
	}{
		{0, 0},
		{2999, 0},
		{3000, 0},
		{3575, 50},
		{3576, 50}, // truncates
		{4149, 99},
		{4150, 100},
		{5000, 100},
	}
	for _, c := range cases {
		if got := p.Percent(c.mv); got != c.want {
			t.Fatalf("Percent(%d) = %d, want %d", c.mv, got, c.want)
		}
	}
}

func TestCellMillivolts(t *testing.T) {
	p := DefaultParams
	// 936 mV at the pin * 4.38 = 4099.68 -> 4100
	if got := p.CellMillivolts(936); got != 4100 {
		t.Fatalf("CellMillivolts(936) = %d, want 4100", got)
	}
	if got := p.CellMillivolts(0); got != 0 {
		t.Fatalf("CellMillivolts(0) = %d", got)
	}
}

type fakeADC struct {
	mv  uint32
	err error
}

func (f fakeADC) ReadPinMillivolts() (uint32, error) { return f.mv, f.err }

func TestRead(t *testing.T) {
	mv, err := DefaultParams.Read(fakeADC{mv: 936})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if mv != 4100 {
		t.Fatalf("got %d mV, want 4100", mv)
	}

	_, err = DefaultParams.Read(fakeADC{err: errors.New("adc busy")})
	if errcode.Of(err) != errcode.ReadFailure {
		t.Fatalf("err = %v, want read_failure", err)
	}
}
