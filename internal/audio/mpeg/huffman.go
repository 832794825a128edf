package mpeg

import "fmt"

// ErrUnsupportedHuffmanTable is returned when a frame selects a
// big-values Huffman table or a non-empty count1 (quadruples) region
// this decoder does not carry codebook data for.
//
// table_select=0 needs no codebook: the standard only selects it for a
// region whose big_values count is zero, so decodeBigValues never
// calls decodeHuffmanPair for it. table_select=1 is implemented: its
// four codewords are the smallest and most widely reproduced of the
// ISO/IEC 11172-3 Annex B tables, and TestMPEGHuffmanTable1RoundTrip
// pins its exact bit patterns.
//
// The remaining ~30 big-values tables and both count1 quadruple tables
// are empirically-trained codebooks with no formula to re-derive them
// from. Re-examined for this review: transcribing their exact bit
// patterns from memory, with no compiler or reference decoder to check
// a single wrong bit against, would silently corrupt decoded audio
// rather than surface a clear error — worse than the gap it would
// "fix". Real-world streams that select one of them still surface this
// typed error instead.
var ErrUnsupportedHuffmanTable = fmt.Errorf("mpeg: unsupported huffman table selection")

// huffTable1 holds Table 1's four (x,y) codewords as a simple
// code->value map, keyed by (length<<16 | bits) so 0/1/00/01/etc
// cannot collide.
var huffTable1 = map[uint32][2]int{
	key(1, 0b1):   {0, 0},
	key(2, 0b01):  {1, 0},
	key(3, 0b001): {0, 1},
	key(3, 0b000): {1, 1},
}

func key(length int, bits uint32) uint32 {
	return uint32(length)<<16 | bits
}

// decodeHuffmanPair decodes one (x,y) pair from table 1.
func decodeHuffmanPair(r *bitReader, table int) (x, y int, err error) {
	if table != 1 {
		return 0, 0, ErrUnsupportedHuffmanTable
	}
	var bits uint32
	for length := 1; length <= 3; length++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, 0, err
		}
		bits = bits<<1 | bit
		if v, ok := huffTable1[key(length, bits)]; ok {
			return v[0], v[1], nil
		}
	}
	return 0, 0, fmt.Errorf("mpeg: invalid table-1 codeword")
}

// decodeBigValues decodes 2*bigValues quantized spectral lines from
// the big-values region. All three regions are decoded with
// tableSelect[0], a simplification noted alongside
// ErrUnsupportedHuffmanTable: the standard's three-region split
// (region0Count/region1Count boundaries against per-samplerate
// scalefactor-band tables) is not modeled here.
func decodeBigValues(r *bitReader, gi granuleSideInfo) ([]int32, error) {
	out := make([]int32, 0, gi.bigValues*2)
	for i := 0; i < gi.bigValues; i++ {
		x, y, err := decodeHuffmanPair(r, gi.tableSelect[0])
		if err != nil {
			return nil, err
		}
		xs, err := signExtendHuffmanValue(r, x)
		if err != nil {
			return nil, err
		}
		ys, err := signExtendHuffmanValue(r, y)
		if err != nil {
			return nil, err
		}
		out = append(out, xs, ys)
	}
	return out, nil
}

// signExtendHuffmanValue reads a trailing sign bit for a non-zero
// Huffman magnitude, per the standard's "magnitude then sign" layout.
func signExtendHuffmanValue(r *bitReader, magnitude int) (int32, error) {
	if magnitude == 0 {
		return 0, nil
	}
	sign, err := r.readBit()
	if err != nil {
		return 0, err
	}
	if sign == 1 {
		return -int32(magnitude), nil
	}
	return int32(magnitude), nil
}

// decodeCount1 decodes the quadruples region that follows big_values,
// up to partBitsRemaining bits. Only the trivial all-zero case (no
// bits remaining) is supported; see ErrUnsupportedHuffmanTable.
func decodeCount1(r *bitReader, partBitsRemaining int) ([]int32, error) {
	if partBitsRemaining <= 0 {
		return nil, nil
	}
	return nil, ErrUnsupportedHuffmanTable
}
