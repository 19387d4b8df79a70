package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]error{
		"sensor_not_detected": SensorNotDetected,
		"not_ready":           NotReady,
		"read_failure":        ReadFailure,
		"crc_mismatch":        CRCMismatch,
		"timeout":             Timeout,
		"display_failure":     DisplayFailure,
		"radio_failure":       RadioFailure,
		"store_failure":       StoreFailure,
		"invalid_params":      InvalidParams,
	}
	for want, e := range cases {
		if e == nil || e.Error() != want {
			t.Fatalf("error %q mismatch: got %#v", want, e)
		}
	}
}

func TestOf(t *testing.T) {
	cause := errors.New("nack")
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", Timeout, Timeout},
		{"wrapper", &E{C: ReadFailure, Op: "sample", Err: cause}, ReadFailure},
		{"fmt wrapped wrapper", fmt.Errorf("cycle: %w", Wrap(SensorNotDetected, "begin", cause)), SensorNotDetected},
		{"fmt wrapped code", fmt.Errorf("poll: %w", NotReady), NotReady},
		{"foreign", cause, Error},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Fatalf("%s: Of() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(ReadFailure, "op", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	cause := errors.New("bus nack")
	err := Wrap(ReadFailure, "sample_full", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable through Unwrap")
	}
	if got, want := err.Error(), "sample_full: read_failure: bus nack"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
