package types

import "testing"

func TestRegionOverlaps(t *testing.T) {
	a := Region{X: 0, Y: 0, W: 10, H: 10}
	cases := []struct {
		b    Region
		want bool
	}{
		{Region{X: 5, Y: 5, W: 10, H: 10}, true},
		{Region{X: 10, Y: 0, W: 5, H: 5}, false}, // touching edge
		{Region{X: 0, Y: 10, W: 5, H: 5}, false},
		{Region{X: 2, Y: 2, W: 0, H: 5}, false}, // empty
		{Region{X: -5, Y: -5, W: 6, H: 6}, true},
	}
	for _, c := range cases {
		if got := a.Overlaps(c.b); got != c.want {
			t.Fatalf("%+v.Overlaps(%+v) = %v, want %v", a, c.b, got, c.want)
		}
		if got := c.b.Overlaps(a); got != c.want {
			t.Fatalf("overlap not symmetric for %+v", c.b)
		}
	}
}

func TestRegionUnion(t *testing.T) {
	a := Region{X: 2, Y: 27, W: 396, H: 123}
	b := Region{X: 342, Y: 2, W: 56, H: 24}
	want := Region{X: 2, Y: 2, W: 396, H: 148}
	if got := a.Union(b); got != want {
		t.Fatalf("Union = %+v, want %+v", got, want)
	}
	if got := b.Union(a); got != want {
		t.Fatalf("Union not symmetric: %+v", got)
	}
	if got := a.Union(Region{X: 500, Y: 500}); got != a {
		t.Fatalf("empty operand changed the union: %+v", got)
	}
	if got := (Region{}).Union(b); got != b {
		t.Fatalf("empty receiver: %+v", got)
	}
}

func TestWakeCause(t *testing.T) {
	if WakeColdBoot.Warm() {
		t.Fatal("cold boot reported warm")
	}
	if !WakeTimer.Warm() || !WakeExternal.Warm() {
		t.Fatal("deep-sleep wakes must be warm")
	}
	if got := WakeExternal.String(); got != "external" {
		t.Fatalf("String() = %q", got)
	}
}

func TestBlankDisplay(t *testing.T) {
	d := BlankDisplay()
	if d.Hours != Unset || d.Minutes != Unset {
		t.Fatalf("clock not unset: %+v", d)
	}
}
