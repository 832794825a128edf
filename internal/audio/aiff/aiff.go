// Package aiff implements spec.md §4.2's uncompressed big-endian chunked
// decoder (FORM/AIFF): the same sample-encoding conversion rules as the
// little-endian wav decoder, with the 80-bit extended-precision
// sample-rate field parsed as a rational scalar.
package aiff

import (
	"encoding/binary"
	"fmt"
	"math"

	"wavepod/internal/audio"
)

// Decoder implements audio.Decoder over an in-memory FORM/AIFF byte
// stream.
type Decoder struct {
	data        []byte
	dataStart   int
	dataEnd     int
	pos         int
	channels    uint8
	sampleRate  uint32
	bitDepth    uint8
	bytesPerSample int
	totalFrames uint64
}

// Open parses a FORM/AIFF stream held entirely in memory.
func Open(data []byte) (*Decoder, error) {
	if len(data) < 12 || string(data[0:4]) != "FORM" || string(data[8:12]) != "AIFF" {
		return nil, fmt.Errorf("aiff: not a FORM/AIFF stream")
	}

	d := &Decoder{data: data}
	pos := 12
	var haveCOMM, haveSSND bool

	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.BigEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		bodyEnd := body + int(size)
		if bodyEnd > len(data) {
			bodyEnd = len(data)
		}

		switch id {
		case "COMM":
			if bodyEnd-body < 18 {
				return nil, fmt.Errorf("aiff: COMM chunk too small")
			}
			d.channels = uint8(binary.BigEndian.Uint16(data[body : body+2]))
			d.totalFrames = uint64(binary.BigEndian.Uint32(data[body+2 : body+6]))
			d.bitDepth = uint8(binary.BigEndian.Uint16(data[body+6 : body+8]))
			d.sampleRate = uint32(parseExtended80(data[body+8 : body+18]))
			haveCOMM = true

		case "SSND":
			if bodyEnd-body < 8 {
				return nil, fmt.Errorf("aiff: SSND chunk too small")
			}
			offset := binary.BigEndian.Uint32(data[body : body+4])
			d.dataStart = body + 8 + int(offset)
			d.dataEnd = bodyEnd
			haveSSND = true
		}

		pos = bodyEnd
		if size%2 == 1 {
			pos++
		}
		if haveCOMM && haveSSND {
			break
		}
	}

	if !haveCOMM || !haveSSND {
		return nil, fmt.Errorf("aiff: missing COMM or SSND chunk")
	}
	if d.channels == 0 {
		return nil, fmt.Errorf("aiff: zero channel count")
	}
	d.bytesPerSample = (int(d.bitDepth) + 7) / 8
	if d.bytesPerSample == 0 {
		return nil, fmt.Errorf("aiff: unsupported bit depth %d", d.bitDepth)
	}
	d.pos = d.dataStart
	return d, nil
}

// parseExtended80 decodes the 80-bit IEEE-754 extended-precision float
// AIFF uses for its sample-rate field (sign:1, exponent:15 biased 16383,
// explicit leading integer bit, 63-bit fraction).
func parseExtended80(b []byte) float64 {
	if len(b) < 10 {
		return 0
	}
	sign := 1.0
	if b[0]&0x80 != 0 {
		sign = -1.0
	}
	exponent := int(b[0]&0x7F)<<8 | int(b[1])
	mantissa := binary.BigEndian.Uint64(b[2:10])
	if exponent == 0 && mantissa == 0 {
		return 0
	}
	frac := float64(mantissa) / (1 << 63)
	return sign * frac * math.Pow(2, float64(exponent-16383))
}

// TrackInfo implements audio.Decoder.
func (d *Decoder) TrackInfo() audio.TrackDescriptor {
	durationMS := uint64(0)
	if d.sampleRate > 0 {
		durationMS = d.totalFrames * 1000 / uint64(d.sampleRate)
	}
	return audio.TrackDescriptor{
		SampleRate:     d.sampleRate,
		Channels:       d.channels,
		SourceBitDepth: d.bitDepth,
		TotalFrames:    d.totalFrames,
		DurationMS:     durationMS,
		Format:         audio.FormatAIFF,
	}
}

// Decode implements audio.Decoder.
func (d *Decoder) Decode(out []int16) (int, error) {
	frameSize := d.bytesPerSample * int(d.channels)
	written := 0
	for written+2 <= len(out) && d.pos+frameSize <= d.dataEnd {
		frame := d.data[d.pos : d.pos+frameSize]
		d.pos += frameSize

		left := d.readChannelSample(frame, 0)
		right := left
		if d.channels > 1 {
			right = d.readChannelSample(frame, 1)
		}
		out[written] = left
		out[written+1] = right
		written += 2
	}
	return written, nil
}

func (d *Decoder) readChannelSample(frame []byte, ch int) int16 {
	off := ch * d.bytesPerSample
	if off+d.bytesPerSample > len(frame) {
		return 0
	}
	raw := frame[off : off+d.bytesPerSample]

	switch d.bitDepth {
	case 8:
		return int16(int8(raw[0])) << 8
	case 16:
		return int16(binary.BigEndian.Uint16(raw))
	case 24:
		v := int32(raw[0])<<16 | int32(raw[1])<<8 | int32(raw[2])
		if v&0x800000 != 0 {
			v |= -1 << 24
		}
		return int16(v >> 8)
	case 32:
		v := int32(binary.BigEndian.Uint32(raw))
		return int16(v >> 16)
	default:
		return 0
	}
}

// Seek resets to stream start and skips forward by discarding frames.
func (d *Decoder) Seek(sampleFrame uint64) error {
	d.pos = d.dataStart
	frameSize := d.bytesPerSample * int(d.channels)
	skipBytes := int(sampleFrame) * frameSize
	if d.pos+skipBytes > d.dataEnd {
		d.pos = d.dataEnd
		return nil
	}
	d.pos += skipBytes
	return nil
}

// IsEOF implements audio.Decoder.
func (d *Decoder) IsEOF() bool {
	return d.pos+d.bytesPerSample*int(d.channels) > d.dataEnd
}
