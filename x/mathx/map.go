package mathx

// MapI32 maps x in [inMin,inMax] to [outMin,outMax] with 64-bit intermediates.
// Clamps to the out range if the input is outside.
func MapI32(x, inMin, inMax, outMin, outMax int32) int32 {
	if inMax == inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	num := int64(x-inMin) * int64(outMax-outMin)
	den := int64(inMax - inMin)
	return int32(int64(outMin) + num/den)
}

// ScaleU16 converts a 16-bit left-justified ADC code to millivolts at the pin
// and multiplies by a resistor divider ratio.
func ScaleU16(raw uint16, vrefMilliV, divider int32) int32 {
	return int32((int64(raw) * int64(vrefMilliV) * int64(divider)) >> 16)
}
