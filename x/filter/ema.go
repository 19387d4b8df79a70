// Package filter holds fixed-point smoothing for noisy raw readings.
package filter

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// DefaultAlpha weights a new sample at 30%.
const DefaultAlpha uint8 = 30

// EMA blends next into prev as an exponential moving average:
//
//	round_half_up((next*alpha + prev*(100-alpha)) / 100)
//
// prev == 0 means "no history" and returns next unchanged. alphaPercent >= 100
// disables smoothing; 0 freezes the output at prev. The weighted sum is formed
// in 128 bits, so any T up to uint64 is exact.
func EMA[T constraints.Unsigned](next, prev T, alphaPercent uint8) T {
	switch {
	case prev == 0, alphaPercent >= 100:
		return next
	case alphaPercent == 0:
		return prev
	}
	a := uint64(alphaPercent)
	hi1, lo1 := bits.Mul64(uint64(next), a)
	hi2, lo2 := bits.Mul64(uint64(prev), 100-a)
	lo, carry := bits.Add64(lo1, lo2, 0)
	hi, _ := bits.Add64(hi1, hi2, carry)
	lo, carry = bits.Add64(lo, 50, 0)
	hi += carry
	// hi < 100 because the sum is below max(next,prev)*100 + 50.
	q, _ := bits.Div64(hi, lo, 100)
	return T(q)
}
