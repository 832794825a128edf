package mpeg

// antialiasCS and antialiasCA are the eight fixed coefficient pairs the
// standard's antialias-butterfly step uses at each of the 31 boundaries
// between adjacent hybrid-domain subbands.
var antialiasCS = [8]float64{
	0.8574929257, 0.8817419973, 0.9496286491, 0.9833145925,
	0.9955178161, 0.9991605582, 0.9998991952, 0.9999931551,
}

var antialiasCA = [8]float64{
	0.5144957554, 0.4717319686, 0.3133774542, 0.1819131996,
	0.0945741925, 0.0409655829, 0.0142872892, 0.0036999747,
}

// antialiasButterflies cancels the aliasing the encoder's 32-band PQMF
// analysis filter introduces between adjacent subbands, running across
// each of the 31 subband boundaries in xr (576 requantized lines, 32
// subbands of 18 lines each) before the hybrid (IMDCT) filter. It must
// run after stereo processing (both operate on requantized lines) and
// before hybridFilter.
//
// A pure short-block granule carries no long-block spectrum for this
// step to act on and is skipped entirely; a mixed-block granule only
// antialiases the boundary between its two long subbands (0 and 1),
// matching the granularity hybridFilter itself already uses for block
// type decisions.
func antialiasButterflies(xr []float64, gi granuleSideInfo) {
	if gi.windowSwitching && gi.blockType == 2 {
		if !gi.mixedBlockFlag {
			return
		}
	}
	bands := 31
	if gi.windowSwitching && gi.blockType == 2 && gi.mixedBlockFlag {
		bands = 1
	}
	for sb := 0; sb < bands; sb++ {
		lowerBase := sb * 18
		upperBase := (sb + 1) * 18
		for i := 0; i < 8; i++ {
			lowerIdx := lowerBase + 17 - i
			upperIdx := upperBase + i
			if upperIdx >= len(xr) {
				break
			}
			lower := xr[lowerIdx]
			upper := xr[upperIdx]
			xr[lowerIdx] = lower*antialiasCS[i] - upper*antialiasCA[i]
			xr[upperIdx] = upper*antialiasCS[i] + lower*antialiasCA[i]
		}
	}
}
