package mpeg

import (
	"fmt"

	"wavepod/internal/audio"
)

// Decoder implements audio.Decoder over an in-memory MPEG-1 Layer III
// stream. Only MPEG-1 (not the MPEG-2/2.5 low-sample-rate extension)
// is supported; its side-info layout differs enough from MPEG-1's to
// warrant a separate decoder, and no example in the retrieved pack
// exercises it.
type Decoder struct {
	data []byte
	pos  int

	sampleRate uint32
	channels   int

	reservoir []byte // accumulated main-data bytes, for the bit reservoir

	hybrid  [2]hybridState
	prevSF  [2]scalefactors
	pending []int16
	eof     bool

	totalFrames uint64
}

var ErrUnsupportedVersion = fmt.Errorf("mpeg: only MPEG-1 is supported")

// Open scans for the first valid Layer III frame header and prepares
// the decoder to decode from there.
func Open(data []byte) (*Decoder, error) {
	pos := findFirstFrame(data)
	if pos < 0 {
		return nil, fmt.Errorf("mpeg: no valid frame sync found")
	}
	h, err := parseHeader(data[pos:])
	if err != nil {
		return nil, err
	}
	if h.version != mpegVersion1 {
		return nil, ErrUnsupportedVersion
	}

	d := &Decoder{
		data:       data,
		pos:        pos,
		sampleRate: h.sampleRate,
		channels:   h.channels,
	}
	d.totalFrames = d.estimateTotalFrames(h)
	return d, nil
}

func findFirstFrame(data []byte) int {
	for i := 0; i+4 <= len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			if _, err := parseHeader(data[i:]); err == nil {
				return i
			}
		}
	}
	return -1
}

// estimateTotalFrames walks the stream counting frames by their
// declared length, used only to report TrackInfo's TotalFrames/
// DurationMS; decoding itself does not depend on this count.
func (d *Decoder) estimateTotalFrames(first header) uint64 {
	var total uint64
	pos := d.pos
	samplesPerFrame := uint64(first.samplesPerFrame())
	for pos+4 <= len(d.data) {
		h, err := parseHeader(d.data[pos:])
		if err != nil {
			break
		}
		length := h.frameLength()
		if length <= 0 || pos+length > len(d.data) {
			break
		}
		total += samplesPerFrame
		pos += length
	}
	return total
}

// TrackInfo implements audio.Decoder.
func (d *Decoder) TrackInfo() audio.TrackDescriptor {
	durationMS := uint64(0)
	if d.sampleRate > 0 {
		durationMS = d.totalFrames * 1000 / uint64(d.sampleRate)
	}
	return audio.TrackDescriptor{
		SampleRate:     d.sampleRate,
		Channels:       uint8(d.channels),
		SourceBitDepth: 16,
		TotalFrames:    d.totalFrames,
		DurationMS:     durationMS,
		Format:         audio.FormatMPEGLayer3,
	}
}

// Decode implements audio.Decoder.
func (d *Decoder) Decode(out []int16) (int, error) {
	written := 0
	for written < len(out) {
		if len(d.pending) == 0 {
			if d.eof {
				break
			}
			if err := d.decodeFrame(); err != nil {
				d.eof = true
				break
			}
		}
		n := copy(out[written:], d.pending)
		d.pending = d.pending[n:]
		written += n
	}
	return written, nil
}

// IsEOF implements audio.Decoder.
func (d *Decoder) IsEOF() bool {
	return d.eof && len(d.pending) == 0
}

// Seek re-decodes from the stream start and discards frames until the
// target sample frame, since this decoder keeps no seek table.
func (d *Decoder) Seek(sampleFrame uint64) error {
	start := findFirstFrame(d.data)
	if start < 0 {
		return fmt.Errorf("mpeg: no valid frame sync found")
	}
	d.pos = start
	d.pending = nil
	d.eof = false
	d.reservoir = nil
	d.hybrid = [2]hybridState{}
	d.prevSF = [2]scalefactors{}

	remaining := sampleFrame
	for remaining > 0 {
		if len(d.pending) == 0 {
			if err := d.decodeFrame(); err != nil {
				d.eof = true
				d.pending = nil
				return nil
			}
		}
		frames := uint64(len(d.pending) / d.channels)
		if frames > remaining {
			d.pending = d.pending[remaining*uint64(d.channels):]
			remaining = 0
		} else {
			remaining -= frames
			d.pending = nil
		}
	}
	return nil
}

// decodeFrame decodes one frame, appending interleaved 16-bit PCM to
// d.pending.
func (d *Decoder) decodeFrame() error {
	if d.pos+4 > len(d.data) {
		return fmt.Errorf("mpeg: at end of stream")
	}
	h, err := parseHeader(d.data[d.pos:])
	if err != nil {
		return err
	}
	frameLen := h.frameLength()
	if frameLen <= 0 || d.pos+frameLen > len(d.data) {
		return fmt.Errorf("mpeg: frame runs past end of stream")
	}

	headerAndCRC := 4
	if h.crcPresent {
		headerAndCRC += 2
	}
	sideInfoStart := d.pos + headerAndCRC
	sideInfoLen := h.sideInfoLength()
	if sideInfoStart+sideInfoLen > d.pos+frameLen {
		return fmt.Errorf("mpeg: side info runs past frame end")
	}
	si, err := parseSideInfo(d.data[sideInfoStart:sideInfoStart+sideInfoLen], h.channels)
	if err != nil {
		return err
	}

	mainDataStart := sideInfoStart + sideInfoLen
	mainDataBytes := d.data[mainDataStart : d.pos+frameLen]
	d.reservoir = append(d.reservoir, mainDataBytes...)

	available := len(d.reservoir) - len(mainDataBytes)
	begin := available - si.mainDataBegin
	if begin < 0 {
		// Not enough reservoir history yet (stream start); skip this
		// frame's main data rather than decoding garbage.
		d.pos += frameLen
		if len(d.reservoir) > 2048 {
			d.reservoir = d.reservoir[len(d.reservoir)-2048:]
		}
		return nil
	}

	r := newBitReader(d.reservoir[begin:])

	granules := h.granuleCount()
	perChannel := make([][576]float64, h.channels)
	for g := 0; g < granules; g++ {
		for ch := 0; ch < h.channels; ch++ {
			gi := si.granules[g][ch]
			startBits := r.bitsRemaining()

			sf, err := decodeScalefactors(r, gi, d.prevSF[ch], si.scfsi[ch], g)
			if err != nil {
				return err
			}
			d.prevSF[ch] = sf

			is, err := decodeBigValues(r, gi)
			if err != nil {
				return err
			}
			consumedBits := startBits - r.bitsRemaining()
			remaining := gi.part2_3Length - consumedBits
			if _, err := decodeCount1(r, remaining); err != nil {
				return err
			}
			// Any unused bits in this granule/channel's part2_3 region
			// (e.g. from an all-zero count1 region) are skipped so the
			// next granule/channel starts aligned.
			consumedBits = startBits - r.bitsRemaining()
			if skip := gi.part2_3Length - consumedBits; skip > 0 {
				if _, err := r.readBits(skip); err != nil {
					return err
				}
			}

			xr := requantize(is, sf, gi)
			full := make([]float64, 576)
			copy(full, xr)
			perChannel[ch] = toArray576(full)
		}

		if h.channels == 2 {
			left := perChannel[0][:]
			right := perChannel[1][:]
			if msStereoActive(h) {
				applyMidSideStereo(left, right)
			}
			if isStereoActive(h) {
				applyIntensityStereo(left, right, d.prevSF[1])
			}
		}

		for ch := 0; ch < h.channels; ch++ {
			gi := si.granules[g][ch]
			antialiasButterflies(perChannel[ch][:], gi)
			slots := d.hybrid[ch].hybridFilter(perChannel[ch][:], gi)
			pcm := synthesizeGranule(slots)
			d.appendPCM(ch, pcm, h.channels)
		}
	}

	d.pos += frameLen
	if len(d.reservoir) > 4096 {
		d.reservoir = d.reservoir[len(d.reservoir)-4096:]
	}
	return nil
}

func toArray576(in []float64) [576]float64 {
	var out [576]float64
	copy(out[:], in)
	return out
}

// appendPCM interleaves one channel's 576 decoded samples into
// d.pending; for a two-channel frame, the second channel's call
// writes into the odd output slots left by the first.
func (d *Decoder) appendPCM(ch int, pcm [576]float64, channels int) {
	if channels == 1 {
		for _, v := range pcm {
			d.pending = append(d.pending, clampToInt16(v))
		}
		return
	}
	base := len(d.pending) - len(pcm)*2
	if ch == 0 || base < 0 {
		for _, v := range pcm {
			d.pending = append(d.pending, clampToInt16(v), 0)
		}
		return
	}
	for i, v := range pcm {
		d.pending[base+i*2+1] = clampToInt16(v)
	}
}
