package mathx

// MapU32 maps x in [inMin,inMax] to [outMin,outMax] with 64-bit intermediates.
// Clamps to out range if input is outside. Fractions truncate toward outMin.
func MapU32(x, inMin, inMax, outMin, outMax uint32) uint32 {
	if inMax <= inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	if outMax < outMin {
		num := uint64(x-inMin) * uint64(outMin-outMax)
		return outMin - uint32(num/uint64(inMax-inMin))
	}
	num := uint64(x-inMin) * uint64(outMax-outMin)
	return outMin + uint32(num/uint64(inMax-inMin))
}
