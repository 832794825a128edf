package mpeg

// scalefacSlenTable maps scalefac_compress (0-15) to the (slen1, slen2)
// bit widths used for the first and second scalefactor band groups.
var scalefacSlenTable = [16][2]int{
	{0, 0}, {0, 1}, {0, 2}, {0, 3},
	{3, 0}, {1, 1}, {1, 2}, {1, 3},
	{2, 1}, {2, 2}, {2, 3}, {3, 1},
	{3, 2}, {3, 3}, {4, 2}, {4, 3},
}

// scfsi band groups for long-block scalefactors: group boundaries at
// bands 0, 6, 11, 16, 21.
var scfsiGroups = [4][2]int{{0, 6}, {6, 11}, {11, 16}, {16, 21}}

type scalefactors struct {
	long  [21]int
	short [3][12]int
}

// decodeScalefactors reads one granule/channel's scalefactors. For
// granule 1 of a long block, a true scfsi bit for a band group copies
// that group from the previous granule instead of reading fresh bits,
// per the MPEG-1 Layer III scale-factor-selection mechanism.
func decodeScalefactors(r *bitReader, gi granuleSideInfo, prev scalefactors, scfsi [4]bool, granuleIndex int) (scalefactors, error) {
	var sf scalefactors
	slen1, slen2 := scalefacSlenTable[gi.scalefacCompress][0], scalefacSlenTable[gi.scalefacCompress][1]

	if gi.windowSwitching && gi.blockType == 2 {
		for w := 0; w < 3; w++ {
			for band := 0; band < 12; band++ {
				slen := slen1
				if band >= 6 {
					slen = slen2
				}
				if slen == 0 {
					continue
				}
				v, err := r.readBits(slen)
				if err != nil {
					return sf, err
				}
				sf.short[w][band] = int(v)
			}
		}
		return sf, nil
	}

	for g, bounds := range scfsiGroups {
		slen := slen1
		if g >= 2 {
			slen = slen2
		}
		reuse := granuleIndex == 1 && scfsi[g]
		for band := bounds[0]; band < bounds[1]; band++ {
			if reuse {
				sf.long[band] = prev.long[band]
				continue
			}
			if slen == 0 {
				continue
			}
			v, err := r.readBits(slen)
			if err != nil {
				return sf, err
			}
			sf.long[band] = int(v)
		}
	}
	return sf, nil
}
