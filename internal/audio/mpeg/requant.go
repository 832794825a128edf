package mpeg

import "math"

// pretab is the fixed preemphasis table added to scalefac when
// gi.preflag is set, per the standard.
var pretab = [21]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 3, 3, 3, 2}

// sfbForLine maps a long-block frequency line index (0-575) to its
// scalefactor band, using fixed band widths approximating the
// 44.1kHz long-block table: the 21 widths cover lines 0-417, and
// sfbForLine assigns lines 418-575 to the last band (20).
var sfbWidthsLong = [21]int{4, 4, 4, 4, 4, 4, 6, 6, 8, 8, 10, 12, 16, 20, 24, 28, 34, 42, 50, 54, 76}

func sfbForLine(line int) int {
	total := 0
	for sfb, width := range sfbWidthsLong {
		total += width
		if line < total {
			return sfb
		}
	}
	return len(sfbWidthsLong) - 1
}

// requantize converts quantized spectral values (is) to reconstructed
// frequency-domain samples (xr), per the standard's
// sign(is)*|is|^(4/3)*2^(0.25*(global_gain-210))*2^(-mult*(scalefac+preflag*pretab))
// formula.
func requantize(is []int32, sf scalefactors, gi granuleSideInfo) []float64 {
	xr := make([]float64, len(is))
	mult := 1
	if gi.scalefacScale == 1 {
		mult = 2
	}
	globalScale := math.Pow(2, 0.25*float64(gi.globalGain-210))

	for i, v := range is {
		if v == 0 {
			continue
		}
		sfb := sfbForLine(i)
		sfValue := sf.long[sfb]
		pre := 0
		if gi.preflag {
			pre = pretab[sfb]
		}
		scale := math.Pow(2, -float64(mult)*float64(sfValue+pre))
		magnitude := math.Pow(math.Abs(float64(v)), 4.0/3.0)
		sign := 1.0
		if v < 0 {
			sign = -1.0
		}
		xr[i] = sign * magnitude * globalScale * scale
	}
	return xr
}
