// Package audio implements the format-dispatch entry point of spec.md
// §4.2 and the shared Decoder contract its four stream decoders
// (internal/audio/flac, mpeg, wav, aiff) implement.
//
// The pull-model shape — a caller repeatedly asks the decoder to fill a
// buffer, rather than the decoder pushing samples anywhere — is grounded
// on internal/apu.APU.GenerateSample/GenerateSamples, which the audio
// pipeline (internal/pipeline) calls once per output frame; here a
// Decoder fills whole interleaved buffers instead of one float32 at a
// time, matching the pipeline's DMA-buffer-sized refill protocol rather
// than the APU's per-sample synthesis loop.
package audio

import "fmt"

// Format tags the container/codec a Decoder was constructed for.
type Format int

const (
	FormatUnknown Format = iota
	FormatFLAC
	FormatMPEGLayer3
	FormatWAV
	FormatAIFF
)

func (f Format) String() string {
	switch f {
	case FormatFLAC:
		return "flac"
	case FormatMPEGLayer3:
		return "mpeg-layer3"
	case FormatWAV:
		return "wav"
	case FormatAIFF:
		return "aiff"
	default:
		return "unknown"
	}
}

// TrackDescriptor is the immutable per-decoder descriptor of spec.md §3:
// created at decoder construction, destroyed when the decoder is closed.
type TrackDescriptor struct {
	SampleRate     uint32
	Channels       uint8
	SourceBitDepth uint8
	TotalFrames    uint64 // 0 if unknown
	DurationMS     uint64
	Format         Format
}

// Decoder is the operational contract spec.md §4.2 gives every stream
// decoder.
type Decoder interface {
	TrackInfo() TrackDescriptor
	// Decode fills out with interleaved stereo 16-bit samples and
	// returns the number of int16 values written (a multiple of the
	// channel count); it returns 0 at end of stream.
	Decode(out []int16) (int, error)
	// Seek is best-effort: decoders without a seek table reset to the
	// stream start and skip forward by decoding and discarding.
	Seek(sampleFrame uint64) error
	IsEOF() bool
}

// DetectFormat inspects the leading bytes of a stream and reports which
// container/codec it belongs to, per spec.md §4.2's format-dispatch
// rules. It never consumes data; callers pass the same leading bytes on
// to the matching package's Open.
func DetectFormat(header []byte) Format {
	switch {
	case len(header) >= 4 && string(header[0:4]) == "fLaC":
		return FormatFLAC
	case len(header) >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE":
		return FormatWAV
	case len(header) >= 12 && string(header[0:4]) == "FORM" && string(header[8:12]) == "AIFF":
		return FormatAIFF
	case len(header) >= 3 && string(header[0:3]) == "ID3":
		return FormatMPEGLayer3
	case looksLikeMPEGFrameSync(header):
		return FormatMPEGLayer3
	default:
		return FormatUnknown
	}
}

// looksLikeMPEGFrameSync reports whether header begins with an 11-bit
// frame sync (0xFFE0 mask) as a raw layered-transform stream without a
// leading ID3v2 tag would.
func looksLikeMPEGFrameSync(header []byte) bool {
	return len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0
}

// ErrUnsupportedFormat is returned by Open when DetectFormat cannot
// identify the stream.
var ErrUnsupportedFormat = fmt.Errorf("audio: unsupported or unrecognized stream format")

// openers maps each detected Format to the constructor of the package
// that decodes it. Indirected through a map (rather than a switch
// importing all four packages inline) to keep this file's import
// block free of the codec packages; RegisterFormat below populates it
// from each codec package's init.
var openers = map[Format]func([]byte) (Decoder, error){}

// RegisterFormat is called from each codec package's init to install
// its Open constructor without this package importing the codec
// packages directly (which would be a dependency cycle, since each
// codec package imports audio for the Decoder/TrackDescriptor types).
func RegisterFormat(f Format, open func([]byte) (Decoder, error)) {
	openers[f] = open
}

// Open detects the stream's format from its leading bytes and
// constructs the matching decoder. Callers must import the codec
// packages (flac, mpeg, wav, aiff) for side effect so they register
// themselves; internal/player does this for all four.
func Open(data []byte) (Decoder, error) {
	format := DetectFormat(data)
	open, ok := openers[format]
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	return open(data)
}
