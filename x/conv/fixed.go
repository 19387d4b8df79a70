package conv

import (
	"golang.org/x/exp/constraints"

	"airnode-go/x/mathx"
)

// Utoa writes n right-aligned at the end of buf and returns the digits.
// Leading digits that do not fit are dropped.
func Utoa[T constraints.Unsigned](buf []byte, n T) []byte {
	i := len(buf)
	for i > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return buf[i:]
}

// Tenths writes a centi-unit value (x100) as "<int>.<tenth>", rounding half up.
// 2256 -> "22.6". buf should be length >= 8.
func Tenths(buf []byte, centi uint16) []byte {
	if len(buf) < 3 {
		return buf[:0]
	}
	t := mathx.RoundDiv(uint32(centi), 10)
	buf[len(buf)-1] = byte('0' + t%10)
	buf[len(buf)-2] = '.'
	head := Utoa(buf[:len(buf)-2], t/10)
	return buf[len(buf)-2-len(head):]
}

// Whole writes a centi-unit value as a whole number, rounding half up.
// 4550 -> "46".
func Whole(buf []byte, centi uint16) []byte {
	return Utoa(buf, mathx.RoundDiv(uint32(centi), 100))
}

// Pad2 writes v as at least two digits ("07", "23"). buf should be length >= 3.
func Pad2(buf []byte, v uint8) []byte {
	out := Utoa(buf, v)
	if len(out) == 1 && len(buf) >= 2 {
		i := len(buf) - 2
		buf[i] = '0'
		return buf[i:]
	}
	return out
}
