package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"testing"

	"wavepod/internal/dma"
	"wavepod/internal/intc"
	"wavepod/internal/pipeline"
)

// buildWAV mirrors internal/audio/wav's own test fixture builder: a
// minimal PCM16 RIFF/WAVE stream, built here rather than imported
// since that helper is unexported to its package.
func buildWAV(channels uint16, sampleRate uint32, samples []int16) []byte {
	var pcm bytes.Buffer
	for _, s := range samples {
		binary.Write(&pcm, binary.LittleEndian, s)
	}

	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&fmtChunk, binary.LittleEndian, channels)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * uint32(channels) * 16 / 8
	binary.Write(&fmtChunk, binary.LittleEndian, byteRate)
	blockAlign := channels * 16 / 8
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(16))

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(fmtChunk.Len()))
	body.Write(fmtChunk.Bytes())
	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(pcm.Len()))
	body.Write(pcm.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func newTestPlayer(t *testing.T, files map[string][]byte) *Player {
	t.Helper()
	ic := intc.New()
	ic.SetGlobalEnable(true)
	engine := dma.New(1, ic)
	sink := &dma.MemoryDest{MemoryEndpoint: &dma.MemoryEndpoint{Data: make([]byte, 4096)}}
	pipe := pipeline.New(engine, 0, ic, intc.SourceI2S, sink, 64, 2, 16)
	pipe.Init()

	p := New(pipe, Options{
		OpenFile: func(path string) ([]byte, error) {
			data, ok := files[path]
			if !ok {
				return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
			}
			return data, nil
		},
	})
	return p
}

func TestLoadFileAndPlaybackLifecycle(t *testing.T) {
	samples := []int16{100, -100, 200, -200, 300, -300}
	files := map[string][]byte{
		"track.wav": buildWAV(2, 44100, samples),
	}
	p := newTestPlayer(t, files)

	if p.HasLoadedTrack() {
		t.Fatal("expected no track loaded initially")
	}
	if err := p.LoadFile("track.wav"); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !p.HasLoadedTrack() {
		t.Fatal("expected track loaded after LoadFile")
	}
	if p.State() != StateLoaded {
		t.Fatalf("state = %v, want Loaded", p.State())
	}
	info, _, ok := p.LoadedTrackInfo()
	if !ok || info.Channels != 2 || info.SampleRate != 44100 || info.TotalFrames != 3 {
		t.Fatalf("info = %+v, ok = %v", info, ok)
	}

	if err := p.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if p.State() != StatePlaying {
		t.Fatalf("state = %v, want Playing", p.State())
	}

	p.Pause()
	if p.State() != StatePaused {
		t.Fatalf("state = %v, want Paused", p.State())
	}

	if err := p.TogglePause(); err != nil {
		t.Fatalf("TogglePause: %v", err)
	}
	if p.State() != StatePlaying {
		t.Fatalf("state = %v, want Playing after toggle", p.State())
	}

	p.Stop()
	if p.State() != StateStopped {
		t.Fatalf("state = %v, want Stopped", p.State())
	}
	if p.HasLoadedTrack() {
		t.Fatal("expected no track loaded after Stop")
	}
}

func TestPlayWithoutLoadedTrackFails(t *testing.T) {
	p := newTestPlayer(t, nil)
	if err := p.Play(); !errors.Is(err, ErrNoTrackLoaded) {
		t.Fatalf("Play with nothing loaded: err = %v, want ErrNoTrackLoaded", err)
	}
}

func TestLoadFileMissingReturnsFileNotFound(t *testing.T) {
	p := newTestPlayer(t, nil)
	err := p.LoadFile("missing.wav")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Kind != ErrFileNotFound {
		t.Fatalf("err = %v, want LoadError{Kind: ErrFileNotFound}", err)
	}
}

func TestLoadFileTooLargeIsRejected(t *testing.T) {
	files := map[string][]byte{
		"big.wav": buildWAV(1, 44100, make([]int16, 10)),
	}
	p := newTestPlayer(t, files)
	p.maxFileBytes = 4 // smaller than any valid WAV header
	err := p.LoadFile("big.wav")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Kind != ErrFileTooLarge {
		t.Fatalf("err = %v, want LoadError{Kind: ErrFileTooLarge}", err)
	}
}

func TestLoadFileUnsupportedFormatIsRejected(t *testing.T) {
	files := map[string][]byte{
		"notaudio.bin": []byte("this is not any recognized container......."),
	}
	p := newTestPlayer(t, files)
	err := p.LoadFile("notaudio.bin")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Kind != ErrUnsupportedFormat {
		t.Fatalf("err = %v, want LoadError{Kind: ErrUnsupportedFormat}", err)
	}
}

func TestSetVolumeClampsRange(t *testing.T) {
	p := newTestPlayer(t, nil)
	p.SetVolume(150)
	if p.Volume() != 100 {
		t.Fatalf("Volume() = %d, want 100", p.Volume())
	}
	p.SetVolume(-5)
	if p.Volume() != 0 {
		t.Fatalf("Volume() = %d, want 0", p.Volume())
	}
}

func TestVolumeGainMonotoneAndZeroIsSilence(t *testing.T) {
	if g := volumeGain(0); g != 0 {
		t.Fatalf("volumeGain(0) = %v, want 0", g)
	}
	if g := volumeGain(100); g != 1 {
		t.Fatalf("volumeGain(100) = %v, want 1", g)
	}
	low := volumeGain(25)
	high := volumeGain(75)
	if !(low < high && high < 1) {
		t.Fatalf("expected monotone gain curve: low=%v high=%v", low, high)
	}
}

func TestNextTrackAdvancesPlaylistSequentially(t *testing.T) {
	files := map[string][]byte{
		"a.wav": buildWAV(1, 44100, []int16{1, 2, 3}),
		"b.wav": buildWAV(1, 44100, []int16{4, 5, 6}),
	}
	p := newTestPlayer(t, files)
	p.SetPlaylist([]string{"a.wav", "b.wav"}, 0)
	if err := p.LoadFile("a.wav"); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := p.NextTrack(); err != nil {
		t.Fatalf("NextTrack: %v", err)
	}
	if p.playlistIndex != 1 {
		t.Fatalf("playlistIndex = %d, want 1", p.playlistIndex)
	}
}

func TestNextTrackWithoutPlaylistFails(t *testing.T) {
	p := newTestPlayer(t, nil)
	if err := p.NextTrack(); !errors.Is(err, ErrEmptyPlaylist) {
		t.Fatalf("NextTrack with no playlist: err = %v, want ErrEmptyPlaylist", err)
	}
}

func TestFillCallbackAppliesVolumeAndAdvancesCursor(t *testing.T) {
	files := map[string][]byte{
		"track.wav": buildWAV(1, 44100, []int16{1000, 1000, 1000, 1000}),
	}
	p := newTestPlayer(t, files)
	if err := p.LoadFile("track.wav"); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	p.SetVolume(100) // unity gain, exercise the pass-through path

	out := make([]int16, 4)
	n := p.fillCallback(out)
	if n != 4 {
		t.Fatalf("fillCallback wrote %d, want 4", n)
	}
	for i, v := range out {
		if v != 1000 {
			t.Fatalf("out[%d] = %d, want 1000 at unity gain", i, v)
		}
	}
	if p.cursor != 4 {
		t.Fatalf("cursor = %d, want 4", p.cursor)
	}
}
