package mpeg

// hybridState carries the second half of each subband's previous
// IMDCT output, the overlap-add memory the hybrid filter needs across
// granules/frames.
type hybridState struct {
	overlap [32][18]float64
}

// hybridFilter runs the IMDCT (long or short, selected by gi.blockType
// when window switching is active) over one channel's 576 requantized
// spectral lines, overlap-adding against carried state, and returns 18
// time slots of 32 subband samples ready for synthesis. Frequency
// inversion (negating odd-indexed samples of odd subbands, the
// standard's PQMF aliasing-cancellation step) is applied in place.
func (hs *hybridState) hybridFilter(xr []float64, gi granuleSideInfo) [18][32]float64 {
	var out [18][32]float64
	blockType := 0
	if gi.windowSwitching {
		blockType = gi.blockType
	}

	for sb := 0; sb < 32; sb++ {
		var windowed [36]float64
		if blockType == 2 {
			for w := 0; w < 3; w++ {
				var in [6]float64
				for i := 0; i < 6; i++ {
					idx := sb*18 + w*6 + i
					if idx < len(xr) {
						in[i] = xr[idx]
					}
				}
				block := imdctShort(in)
				for i := 0; i < 12; i++ {
					block[i] *= windowShort[i]
				}
				copy(windowed[w*12:w*12+12], block[:])
			}
		} else {
			var in [18]float64
			for i := 0; i < 18; i++ {
				idx := sb*18 + i
				if idx < len(xr) {
					in[i] = xr[idx]
				}
			}
			windowed = applyWindow(blockType, imdctLong(in))
		}

		for i := 0; i < 18; i++ {
			sample := windowed[i] + hs.overlap[sb][i]
			if sb%2 == 1 && i%2 == 1 {
				sample = -sample
			}
			out[i][sb] = sample
		}
		copy(hs.overlap[sb][:], windowed[18:36])
	}

	return out
}
