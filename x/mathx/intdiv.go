package mathx

import "golang.org/x/exp/constraints"

// RoundDiv returns a/b rounded half up. b == 0 yields 0.
// Written in quotient/remainder form so a near the type's maximum cannot overflow.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	q, r := a/b, a%b
	if r >= b-r {
		q++
	}
	return q
}
