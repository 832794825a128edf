package aiff

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// encodeExtended80 is the test-only inverse of parseExtended80: it
// constructs the 80-bit IEEE-754 extended-precision encoding AIFF's
// COMM sample-rate field uses, so tests can verify the decoder against
// known decimal sample rates without hand-deriving bit patterns.
func encodeExtended80(v float64) []byte {
	b := make([]byte, 10)
	if v == 0 {
		return b
	}
	frac, exp := math.Frexp(v) // v == frac * 2^exp, frac in [0.5, 1)
	mantissa := uint64(frac * 2 * (1 << 63))
	exponent := uint16(exp - 1 + 16383)
	b[0] = byte(exponent >> 8 & 0x7F)
	b[1] = byte(exponent)
	binary.BigEndian.PutUint64(b[2:10], mantissa)
	return b
}

func buildCOMM(channels int16, frames uint32, bitDepth int16, sampleRate float64) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, channels)
	binary.Write(&b, binary.BigEndian, frames)
	binary.Write(&b, binary.BigEndian, bitDepth)
	b.Write(encodeExtended80(sampleRate))
	return b.Bytes()
}

func buildAIFF(t *testing.T, comm []byte, pcm []byte) []byte {
	t.Helper()
	var ssnd bytes.Buffer
	binary.Write(&ssnd, binary.BigEndian, uint32(0)) // offset
	binary.Write(&ssnd, binary.BigEndian, uint32(0)) // block size
	ssnd.Write(pcm)

	var body bytes.Buffer
	body.WriteString("AIFF")
	body.WriteString("COMM")
	binary.Write(&body, binary.BigEndian, uint32(len(comm)))
	body.Write(comm)
	body.WriteString("SSND")
	binary.Write(&body, binary.BigEndian, uint32(ssnd.Len()))
	body.Write(ssnd.Bytes())

	var out bytes.Buffer
	out.WriteString("FORM")
	binary.Write(&out, binary.BigEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestExtended80RoundTrip(t *testing.T) {
	for _, rate := range []float64{44100, 48000, 22050, 8000, 96000} {
		encoded := encodeExtended80(rate)
		got := parseExtended80(encoded)
		if math.Abs(got-rate) > 1 {
			t.Fatalf("parseExtended80(encode(%v)) = %v", rate, got)
		}
	}
}

func TestAIFF16BitStereoRoundTrip(t *testing.T) {
	var pcm bytes.Buffer
	binary.Write(&pcm, binary.BigEndian, int16(1000))
	binary.Write(&pcm, binary.BigEndian, int16(-1000))
	binary.Write(&pcm, binary.BigEndian, int16(500))
	binary.Write(&pcm, binary.BigEndian, int16(-500))

	comm := buildCOMM(2, 2, 16, 44100)
	raw := buildAIFF(t, comm, pcm.Bytes())

	d, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	info := d.TrackInfo()
	if info.Channels != 2 || info.TotalFrames != 2 {
		t.Fatalf("info = %+v", info)
	}
	if int(info.SampleRate) < 44099 || int(info.SampleRate) > 44101 {
		t.Fatalf("SampleRate = %d, want ~44100", info.SampleRate)
	}

	out := make([]int16, 4)
	n, err := d.Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	want := []int16{1000, -1000, 500, -500}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], w)
		}
	}
}

func TestAIFFRejectsNonFORM(t *testing.T) {
	if _, err := Open([]byte("definitely not an aiff file........")); err == nil {
		t.Fatalf("expected error for non-FORM input")
	}
}

func TestAIFFMonoDuplicatesChannel(t *testing.T) {
	var pcm bytes.Buffer
	binary.Write(&pcm, binary.BigEndian, int16(42))
	comm := buildCOMM(1, 1, 16, 8000)
	raw := buildAIFF(t, comm, pcm.Bytes())

	d, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := make([]int16, 2)
	if _, err := d.Decode(out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out[0] != 42 || out[1] != 42 {
		t.Fatalf("out = %d,%d, want 42,42", out[0], out[1])
	}
}
