package wav

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func buildWAV(t *testing.T, audioFormat, channels uint16, sampleRate uint32, bitDepth uint16, data []byte) []byte {
	t.Helper()
	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, audioFormat)
	binary.Write(&fmtChunk, binary.LittleEndian, channels)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * uint32(channels) * uint32(bitDepth) / 8
	binary.Write(&fmtChunk, binary.LittleEndian, byteRate)
	blockAlign := channels * bitDepth / 8
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, bitDepth)

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(fmtChunk.Len()))
	body.Write(fmtChunk.Bytes())
	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(len(data)))
	body.Write(data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestWAV16BitStereoRoundTrip(t *testing.T) {
	var pcm bytes.Buffer
	binary.Write(&pcm, binary.LittleEndian, int16(1000))
	binary.Write(&pcm, binary.LittleEndian, int16(-1000))
	binary.Write(&pcm, binary.LittleEndian, int16(2000))
	binary.Write(&pcm, binary.LittleEndian, int16(-2000))
	raw := buildWAV(t, 1, 2, 44100, 16, pcm.Bytes())

	d, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	info := d.TrackInfo()
	if info.Channels != 2 || info.SampleRate != 44100 || info.TotalFrames != 2 {
		t.Fatalf("info = %+v", info)
	}

	out := make([]int16, 4)
	n, err := d.Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	want := []int16{1000, -1000, 2000, -2000}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], w)
		}
	}
	if !d.IsEOF() {
		t.Fatalf("IsEOF() = false after draining all frames")
	}
}

func TestWAV8BitMonoCentering(t *testing.T) {
	raw := buildWAV(t, 1, 1, 8000, 8, []byte{0, 128, 255})
	d, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := make([]int16, 6)
	n, err := d.Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 6 {
		t.Fatalf("n = %d, want 6", n)
	}
	// byte 0 -> unsigned 0, centred to -128, scaled to -32768.
	if out[0] != -32768 || out[1] != -32768 {
		t.Fatalf("frame0 = %d,%d, want -32768,-32768", out[0], out[1])
	}
	// byte 128 -> centred to 0.
	if out[2] != 0 || out[3] != 0 {
		t.Fatalf("frame1 = %d,%d, want 0,0", out[2], out[3])
	}
}

func TestWAVFloat32Clamping(t *testing.T) {
	var pcm bytes.Buffer
	binary.Write(&pcm, binary.LittleEndian, math.Float32bits(2.0)) // out of range, clamps
	binary.Write(&pcm, binary.LittleEndian, math.Float32bits(-2.0))
	binary.Write(&pcm, binary.LittleEndian, math.Float32bits(0.5))
	binary.Write(&pcm, binary.LittleEndian, math.Float32bits(-0.5))
	raw := buildWAV(t, 3, 2, 44100, 32, pcm.Bytes())

	d, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := make([]int16, 2)
	if _, err := d.Decode(out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out[0] != 32767 {
		t.Fatalf("left = %d, want clamped 32767", out[0])
	}
	if out[1] != -32768 {
		t.Fatalf("right = %d, want clamped -32768", out[1])
	}
}

func TestWAVRejectsNonRIFF(t *testing.T) {
	if _, err := Open([]byte("not a wav file at all............")); err == nil {
		t.Fatalf("expected error for non-RIFF input")
	}
}

func TestWAVSeekSkipsFrames(t *testing.T) {
	var pcm bytes.Buffer
	for i := int16(0); i < 8; i++ {
		binary.Write(&pcm, binary.LittleEndian, i)
		binary.Write(&pcm, binary.LittleEndian, -i)
	}
	raw := buildWAV(t, 1, 2, 44100, 16, pcm.Bytes())
	d, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.Seek(3); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	out := make([]int16, 2)
	if _, err := d.Decode(out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out[0] != 3 || out[1] != -3 {
		t.Fatalf("out = %d,%d, want 3,-3", out[0], out[1])
	}
}
