package main

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"wavepod/internal/config"
	"wavepod/internal/dma"
)

// buildAudioSink returns the pipeline's DMA destination: a real SDL2
// audio device when useSDL is set (spec.md §5's "a single thread
// drives the audio producer when the SDL backend is enabled", grounded
// on the teacher's ui.go/fyne_ui.go sdl.OpenAudioDevice/QueueAudio
// setup, adapted from its AUDIO_F32 format to AUDIO_S16LSB since the
// pipeline's buffers are already int16 PCM), or an in-memory sink
// otherwise (silent, but exercises the exact same DMA/Endpoint path —
// useful for testing the tick loop without a sound card).
func buildAudioSink(useSDL bool, cfg config.Config) (dma.Endpoint, func(), error) {
	if !useSDL {
		buf := make([]byte, cfg.BufferFrames*cfg.Channels*2)
		return &dma.MemoryDest{MemoryEndpoint: &dma.MemoryEndpoint{Data: buf}}, func() {}, nil
	}

	if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
		return nil, nil, fmt.Errorf("sdl.Init: %w", err)
	}
	spec := sdl.AudioSpec{
		Freq:     int32(cfg.SampleRate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: uint8(cfg.Channels),
		Samples:  uint16(cfg.BufferFrames),
	}
	dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		sdl.Quit()
		return nil, nil, fmt.Errorf("sdl.OpenAudioDevice: %w", err)
	}
	sdl.PauseAudioDevice(dev, false)

	sink := dma.FIFODest{FIFO: sdlFIFO{dev: dev}}
	closeFn := func() {
		sdl.CloseAudioDevice(dev)
		sdl.Quit()
	}
	return &sink, closeFn, nil
}

// sdlFIFO adapts an SDL audio device into dma.FIFOWriter: every DMA
// burst destined for the I2S FIFO is queued onto the device instead.
type sdlFIFO struct {
	dev sdl.AudioDeviceID
}

func (s sdlFIFO) WriteFIFO(b []byte) (int, error) {
	if err := sdl.QueueAudio(s.dev, b); err != nil {
		return 0, fmt.Errorf("sdl.QueueAudio: %w", err)
	}
	return len(b), nil
}
