package mpeg

import "math"

var invSqrt2 = 1 / math.Sqrt2

// applyMidSideStereo reverses MS (mid/side) joint-stereo encoding:
// channel 0 carries mid=(L+R)/sqrt2, channel 1 carries side=(L-R)/sqrt2.
func applyMidSideStereo(left, right []float64) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		mid, side := left[i], right[i]
		left[i] = (mid + side) * invSqrt2
		right[i] = (mid - side) * invSqrt2
	}
}

// msStereoActive reports whether the frame header's joint-stereo mode
// extension selects MS stereo (bit 1 of mode_extension, Layer III).
func msStereoActive(h header) bool {
	return h.jointMode&0x2 != 0
}

// isStereoActive reports whether the frame header's joint-stereo mode
// extension selects intensity stereo (bit 0 of mode_extension).
func isStereoActive(h header) bool {
	return h.jointMode&0x1 != 0
}

// applyIntensityStereo reverses intensity-stereo encoding: bands coded
// this way carry only a left/mid signal, with the right channel's
// scalefactor for that band reused as an intensity position (0-6)
// rather than an amplitude. is_ratio = tan(is_pos*pi/12) gives the
// left/right energy split; position 6 is the "all left" limit (ratio
// diverges) and position 7 means the band was not intensity-coded, so
// its independently-decoded samples are left untouched.
//
// Real encoders only intensity-code bands above the right channel's
// last nonzero big_values/count1 line; this decoder does not track
// that per-band zero boundary, so it applies the reconstruction to
// every band whose reused scalefactor is a valid intensity position
// (0-6) instead — a coarser rule than the standard's, in the same
// spirit as requantize's approximate scalefactor-band table.
func applyIntensityStereo(left, right []float64, rightSF scalefactors) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		isPos := rightSF.long[sfbForLine(i)]
		if isPos >= 7 {
			continue
		}
		l := left[i]
		if isPos == 6 {
			right[i] = 0
			continue
		}
		ratio := math.Tan(float64(isPos) * math.Pi / 12)
		left[i] = l * (ratio / (1 + ratio))
		right[i] = l * (1 / (1 + ratio))
	}
}
