// Package mpeg implements spec.md §4.2's lossy layered-transform
// decoder: MPEG-1 Audio Layer III frame sync, header and side-info
// parsing (MPEG-2/2.5 headers are parsed, but Open rejects those
// streams), the bit reservoir, Huffman-coded spectral decode,
// requantization, stereo processing, the inverse transform, and
// subband synthesis to 16-bit PCM.
package mpeg

import "fmt"

// MPEG version IDs as encoded in the frame header's 2-bit version field.
const (
	mpegVersion25 = 0
	mpegVersion2  = 2
	mpegVersion1  = 3
)

var sampleRateTable = map[int][3]uint32{
	mpegVersion1:  {44100, 48000, 32000},
	mpegVersion2:  {22050, 24000, 16000},
	mpegVersion25: {11025, 12000, 8000},
}

// bitrateTableV1L3 is the Layer III bitrate index table (kbps) for
// MPEG version 1; index 0 is the "free format" sentinel.
var bitrateTableV1L3 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1}

// bitrateTableV2L3 is the Layer III bitrate index table (kbps) shared
// by MPEG version 2 and 2.5.
var bitrateTableV2L3 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1}

// header holds the fields of one parsed Layer III frame header.
type header struct {
	version    int
	sampleRate uint32
	bitrateKbps int
	padding    int
	channels   int
	jointMode  int // 0=LR 1=IS 2=MS 3=IS+MS, only meaningful for joint-stereo mode
	modeExt    int
	crcPresent bool
}

var errBadSync = fmt.Errorf("mpeg: bad frame sync")
var errUnsupportedLayer = fmt.Errorf("mpeg: only layer III is supported")
var errFreeFormat = fmt.Errorf("mpeg: free-format bitrate not supported")
var errReservedField = fmt.Errorf("mpeg: reserved header field")

// parseHeader parses the 4-byte frame header at the start of b.
func parseHeader(b []byte) (header, error) {
	var h header
	if len(b) < 4 {
		return h, fmt.Errorf("mpeg: truncated header")
	}
	if b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return h, errBadSync
	}
	versionBits := int(b[1]>>3) & 0x3
	layerBits := int(b[1]>>1) & 0x3
	protectionAbsent := b[1]&0x1 != 0

	if layerBits != 1 { // Layer III is encoded as bits '01'
		return h, errUnsupportedLayer
	}
	h.crcPresent = !protectionAbsent

	if versionBits == 1 {
		return h, errReservedField
	}
	h.version = versionBits

	bitrateIndex := int(b[2] >> 4)
	sampleRateIndex := int(b[2]>>2) & 0x3
	if sampleRateIndex == 3 {
		return h, errReservedField
	}
	h.padding = int(b[2]>>1) & 0x1

	rates, ok := sampleRateTable[h.version]
	if !ok {
		return h, errReservedField
	}
	h.sampleRate = rates[sampleRateIndex]

	if h.version == mpegVersion1 {
		h.bitrateKbps = bitrateTableV1L3[bitrateIndex]
	} else {
		h.bitrateKbps = bitrateTableV2L3[bitrateIndex]
	}
	if h.bitrateKbps == 0 {
		return h, errFreeFormat
	}
	if h.bitrateKbps < 0 {
		return h, errReservedField
	}

	channelMode := int(b[3]>>6) & 0x3
	h.modeExt = int(b[3]>>4) & 0x3
	if channelMode == 1 {
		h.jointMode = h.modeExt
	}
	if channelMode == 3 {
		h.channels = 1
	} else {
		h.channels = 2
	}

	return h, nil
}

// frameLength computes the total byte length of a Layer III frame
// (header included), per the standard 144*bitrate/samplerate formula
// (72* for MPEG2/2.5, which run at half the samples-per-frame).
func (h header) frameLength() int {
	coeff := 144
	if h.version != mpegVersion1 {
		coeff = 72
	}
	return coeff*h.bitrateKbps*1000/int(h.sampleRate) + h.padding
}

// sideInfoLength returns the byte length of the side-information block
// that immediately follows the header (and the optional 2-byte CRC).
func (h header) sideInfoLength() int {
	if h.version == mpegVersion1 {
		if h.channels == 1 {
			return 17
		}
		return 32
	}
	if h.channels == 1 {
		return 9
	}
	return 17
}

// samplesPerFrame returns the number of PCM sample frames this frame
// decodes to: 1152 for MPEG1, 576 for MPEG2/2.5.
func (h header) samplesPerFrame() int {
	if h.version == mpegVersion1 {
		return 1152
	}
	return 576
}

// granuleCount returns the number of granules per frame: 2 for MPEG1,
// 1 for MPEG2/2.5.
func (h header) granuleCount() int {
	if h.version == mpegVersion1 {
		return 2
	}
	return 1
}
