package mpeg

import "fmt"

// granuleSideInfo holds one channel's per-granule side info fields,
// laid out per the MPEG-1 Layer III bitstream.
type granuleSideInfo struct {
	part2_3Length     int
	bigValues         int
	globalGain        int
	scalefacCompress  int
	windowSwitching   bool
	blockType         int
	mixedBlockFlag    bool
	tableSelect       [3]int
	subblockGain      [3]int
	region0Count      int
	region1Count      int
	preflag           bool
	scalefacScale     int
	count1TableSelect int
}

type frameSideInfo struct {
	mainDataBegin int
	scfsi         [2][4]bool
	granules      [2][2]granuleSideInfo // [granule][channel]
}

// parseSideInfo parses the MPEG-1 Layer III side-information block
// that follows the header (and optional CRC).
func parseSideInfo(b []byte, channels int) (frameSideInfo, error) {
	var si frameSideInfo
	r := newBitReader(b)

	mainDataBegin, err := r.readBits(9)
	if err != nil {
		return si, err
	}
	si.mainDataBegin = int(mainDataBegin)

	privateBits := 3
	if channels == 1 {
		privateBits = 5
	}
	if _, err := r.readBits(privateBits); err != nil {
		return si, err
	}

	for ch := 0; ch < channels; ch++ {
		for band := 0; band < 4; band++ {
			bit, err := r.readBit()
			if err != nil {
				return si, err
			}
			si.scfsi[ch][band] = bit == 1
		}
	}

	for g := 0; g < 2; g++ {
		for ch := 0; ch < channels; ch++ {
			gi := &si.granules[g][ch]

			v, err := r.readBits(12)
			if err != nil {
				return si, err
			}
			gi.part2_3Length = int(v)

			v, err = r.readBits(9)
			if err != nil {
				return si, err
			}
			gi.bigValues = int(v)

			v, err = r.readBits(8)
			if err != nil {
				return si, err
			}
			gi.globalGain = int(v)

			v, err = r.readBits(4)
			if err != nil {
				return si, err
			}
			gi.scalefacCompress = int(v)

			wsw, err := r.readBit()
			if err != nil {
				return si, err
			}
			gi.windowSwitching = wsw == 1

			if gi.windowSwitching {
				v, err = r.readBits(2)
				if err != nil {
					return si, err
				}
				gi.blockType = int(v)
				if gi.blockType == 0 {
					return si, fmt.Errorf("mpeg: reserved block type with window switching set")
				}
				mbf, err := r.readBit()
				if err != nil {
					return si, err
				}
				gi.mixedBlockFlag = mbf == 1

				for i := 0; i < 2; i++ {
					v, err = r.readBits(5)
					if err != nil {
						return si, err
					}
					gi.tableSelect[i] = int(v)
				}
				for i := 0; i < 3; i++ {
					v, err = r.readBits(3)
					if err != nil {
						return si, err
					}
					gi.subblockGain[i] = int(v)
				}
				gi.region0Count = 7
				gi.region1Count = 36 // unused by long-block region logic for short blocks
			} else {
				for i := 0; i < 3; i++ {
					v, err = r.readBits(5)
					if err != nil {
						return si, err
					}
					gi.tableSelect[i] = int(v)
				}
				v, err = r.readBits(4)
				if err != nil {
					return si, err
				}
				gi.region0Count = int(v)
				v, err = r.readBits(3)
				if err != nil {
					return si, err
				}
				gi.region1Count = int(v)
			}

			preflag, err := r.readBit()
			if err != nil {
				return si, err
			}
			gi.preflag = preflag == 1

			v, err = r.readBits(1)
			if err != nil {
				return si, err
			}
			gi.scalefacScale = int(v)

			v, err = r.readBits(1)
			if err != nil {
				return si, err
			}
			gi.count1TableSelect = int(v)
		}
	}

	return si, nil
}
