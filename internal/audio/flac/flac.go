// Package flac implements spec.md §4.2's lossless subband decoder
// (fLaC): stream-info metadata parsing, frame/subframe decode (constant,
// verbatim, fixed predictor orders 0-4, linear-predictive orders 1-32),
// Rice-partitioned residual coding, and stereo decorrelation.
//
// Block/field layout is grounded on
// other_examples/93ed2487_mewkiz-flac__meta-meta.go.go's NewBlockHeader/
// NewStreamInfo (the metadata side only; that file's frame/subframe
// decoder was not part of the retrieved pack, so the frame, subframe,
// and residual decode here follow spec.md §4.2's prose directly).
package flac

import (
	"encoding/binary"
	"fmt"

	"wavepod/internal/audio"
)

const (
	blockTypeStreamInfo = 0
	blockTypeLast       = 0x80
)

type streamInfo struct {
	minBlockSize  uint16
	maxBlockSize  uint16
	sampleRate    uint32
	channels      uint8
	bitsPerSample uint8
	totalSamples  uint64
}

// Decoder implements audio.Decoder over an in-memory FLAC stream.
type Decoder struct {
	data       []byte
	frameStart int
	pos        int
	info       streamInfo

	pending []int16 // interleaved 16-bit samples awaiting Decode drain
	eof     bool
}

// Open parses a FLAC stream's metadata blocks and positions the decoder
// at the first frame.
func Open(data []byte) (*Decoder, error) {
	if len(data) < 4 || string(data[0:4]) != "fLaC" {
		return nil, fmt.Errorf("flac: not a FLAC stream")
	}
	d := &Decoder{data: data}
	pos := 4
	haveStreamInfo := false

	for {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("flac: truncated metadata block header")
		}
		header := data[pos]
		isLast := header&blockTypeLast != 0
		blockType := header &^ blockTypeLast
		length := int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		body := pos + 4
		bodyEnd := body + length
		if bodyEnd > len(data) {
			return nil, fmt.Errorf("flac: metadata block runs past end of stream")
		}

		if blockType == blockTypeStreamInfo {
			si, err := parseStreamInfo(data[body:bodyEnd])
			if err != nil {
				return nil, err
			}
			d.info = si
			haveStreamInfo = true
		}

		pos = bodyEnd
		if isLast {
			break
		}
	}

	if !haveStreamInfo {
		return nil, fmt.Errorf("flac: stream has no STREAMINFO block")
	}
	d.frameStart = pos
	d.pos = pos
	return d, nil
}

func parseStreamInfo(b []byte) (streamInfo, error) {
	var si streamInfo
	if len(b) < 34 {
		return si, fmt.Errorf("flac: STREAMINFO block too small")
	}
	si.minBlockSize = binary.BigEndian.Uint16(b[0:2])
	si.maxBlockSize = binary.BigEndian.Uint16(b[2:4])
	// minFrameSize/maxFrameSize (24 bits each, offsets 4-9) are not used by the decoder.
	bits := uint64(b[10])<<56 | uint64(b[11])<<48 | uint64(b[12])<<40 | uint64(b[13])<<32 |
		uint64(b[14])<<24 | uint64(b[15])<<16 | uint64(b[16])<<8 | uint64(b[17])
	si.sampleRate = uint32(bits >> 44)
	si.channels = uint8((bits>>41)&0x7) + 1
	si.bitsPerSample = uint8((bits>>36)&0x1F) + 1
	si.totalSamples = bits & 0xFFFFFFFFF
	return si, nil
}

// TrackInfo implements audio.Decoder.
func (d *Decoder) TrackInfo() audio.TrackDescriptor {
	durationMS := uint64(0)
	if d.info.sampleRate > 0 {
		durationMS = d.info.totalSamples * 1000 / uint64(d.info.sampleRate)
	}
	return audio.TrackDescriptor{
		SampleRate:     d.info.sampleRate,
		Channels:       d.info.channels,
		SourceBitDepth: d.info.bitsPerSample,
		TotalFrames:    d.info.totalSamples,
		DurationMS:     durationMS,
		Format:         audio.FormatFLAC,
	}
}

// Decode implements audio.Decoder, draining previously decoded frames
// and decoding further frames as needed to fill out.
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
	return len(d.pending) == 0 && (d.eof || d.pos >= len(d.data))
}

// Seek resets to the first frame and skips forward by decoding and
// discarding, since this decoder keeps no seek table.
func (d *Decoder) Seek(sampleFrame uint64) error {
	d.pos = d.frameStart
	d.pending = nil
	d.eof = false
	remaining := sampleFrame
	for remaining > 0 {
		before := len(d.pending)
		if before == 0 {
			if err := d.decodeFrame(); err != nil {
				d.eof = true
				d.pending = nil
				return nil
			}
		}
		frames := uint64(len(d.pending) / int(d.info.channels))
		if frames > remaining {
			skip := remaining * uint64(d.info.channels)
			d.pending = d.pending[skip:]
			remaining = 0
		} else {
			remaining -= frames
			d.pending = nil
		}
	}
	return nil
}
