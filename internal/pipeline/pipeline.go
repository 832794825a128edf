// Package pipeline implements the audio pipeline of spec.md §4.1: a
// double-buffered, dirty-flag-driven refill protocol that feeds an I2S
// FIFO from a DMA channel while surviving arbitrary decoder latency up
// to one buffer of audio.
//
// The split between a fast-interrupt completion handler (onDMAComplete)
// that only flips flags and re-arms the next transfer, and a main-loop
// tick (Process) that does the actual decode-callback work, is grounded
// on clock.MasterClock.Step's "registered step function invoked at a
// driving cadence" shape and on emulator.RunFrame's "step the clock,
// then drain whatever audio became available into a buffer" loop —
// generalized here from a single clock driving CPU/PPU/APU steps in
// lockstep to a DMA completion event driving exactly one buffer-sized
// refill. The DMA engine itself (internal/dma) already owns bursting
// and completion-interrupt delivery; this package owns only the buffer
// pair, the dirty flags, and what runs on each side of that boundary.
package pipeline

import (
	"errors"
	"sync"

	"wavepod/internal/dma"
	"wavepod/internal/intc"
)

// ErrNotInitialized is returned by Start when Init has not been called.
var ErrNotInitialized = errors.New("pipeline: not initialized")

// FillFunc fills out with interleaved stereo 16-bit samples, returning
// the number of int16 values written (a multiple of the channel
// count). Returning fewer than len(out) is not an error — the
// remainder is treated as an underrun and zero-filled.
type FillFunc func(out []int16) int

// Stats exposes the underrun counters spec.md §4.1's failure semantics
// call for: a fill callback under-delivering, or a buffer reaching DMA
// again before the main loop refilled it, is a soft underrun; a
// failed DMA re-arm is a fatal underrun that stops the pipeline.
type Stats struct {
	Underruns      uint64
	FatalUnderruns uint64
}

// Pipeline owns the double buffer pair and its refill protocol. It is
// not safe for concurrent Start/Stop/Pause calls from multiple
// goroutines, but Process and the DMA completion callback may run
// concurrently with each other (the former on the main loop, the
// latter from the interrupt path); the dirty-flag/active-index state
// they share is protected by mu.
type Pipeline struct {
	mu sync.Mutex

	buffers [2][]int16 // equally sized interleaved stereo halves
	dirty   [2]bool
	active  int // index of the buffer currently being drained by DMA

	initialized bool
	running     bool
	paused      bool

	fill FillFunc

	dmaEngine  *dma.Engine
	channel    int
	burstBytes uint32
	sink       dma.Endpoint
	completion intc.Source
	intc       *intc.Controller

	stats Stats
}

// New constructs a Pipeline over the given DMA engine/channel. sink is
// the I2S FIFO (or a host audio queue standing in for it); completion
// is the interrupt source the DMA channel raises on each buffer drain.
// bufferFrames is the per-buffer capacity in sample frames (spec.md's
// "typical: 2048 frames"); channels is normally 2.
func New(engine *dma.Engine, channel int, controller *intc.Controller, completion intc.Source, sink dma.Endpoint, bufferFrames, channels int, burstBytes uint32) *Pipeline {
	return &Pipeline{
		dmaEngine:  engine,
		channel:    channel,
		intc:       controller,
		completion: completion,
		sink:       sink,
		burstBytes: burstBytes,
		buffers: [2][]int16{
			make([]int16, bufferFrames*channels),
			make([]int16, bufferFrames*channels),
		},
	}
}

// Init allocates/zeroes both buffers and leaves the pipeline stopped,
// per spec.md §4.1's init() contract.
func (p *Pipeline) Init() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.buffers {
		clear(p.buffers[i])
		p.dirty[i] = false
	}
	p.active = 0
	p.running = false
	p.paused = false
	p.initialized = true
}

// Start pre-fills both buffers via fill, arms the first DMA transfer,
// and sets running. A Start call while already running is a no-op,
// not an error.
func (p *Pipeline) Start(fill FillFunc) error {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return ErrNotInitialized
	}
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.fill = fill
	p.active = 0
	p.refillLocked(0)
	p.refillLocked(1)
	p.dirty[0] = false
	p.dirty[1] = false
	p.running = true
	p.mu.Unlock()

	return p.armTransfer(0)
}

// Stop aborts the DMA channel, clears both buffers to silence, clears
// the fill callback, and sets running=false.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dmaEngine != nil {
		_ = p.dmaEngine.Abort(p.channel)
	}
	for i := range p.buffers {
		clear(p.buffers[i])
		p.dirty[i] = false
	}
	p.fill = nil
	p.running = false
}

// Pause marks the pipeline so subsequent refills produce silence
// irrespective of the fill callback, while DMA continues draining
// whatever is already buffered — this guarantees a click-free resume.
func (p *Pipeline) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Unpause resumes normal refills.
func (p *Pipeline) Unpause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

// Process is the main-loop tick: for each buffer whose dirty flag is
// set, atomically clears it and invokes the fill callback.
func (p *Pipeline) Process() {
	for _, idx := range [2]int{0, 1} {
		p.mu.Lock()
		if !p.dirty[idx] {
			p.mu.Unlock()
			continue
		}
		p.dirty[idx] = false
		p.refillLocked(idx)
		p.mu.Unlock()
	}
}

// refillLocked fills buffer idx, zero-filling and counting an underrun
// for any shortfall. Callers hold mu.
func (p *Pipeline) refillLocked(idx int) {
	buf := p.buffers[idx]
	if p.paused || p.fill == nil {
		clear(buf)
		return
	}
	n := p.fill(buf)
	if n < 0 {
		n = 0
	}
	if n < len(buf) {
		clear(buf[n:])
		p.stats.Underruns++
	}
}

// onDMAComplete is the fast-interrupt entry point spec.md §4.1 names:
// it acknowledges the interrupt source, marks the just-drained buffer
// dirty, advances the active index, and arms the next transfer. It
// must stay allocation-free and do no decode work itself — that is
// Process's job, invoked later from the main loop.
func (p *Pipeline) onDMAComplete() {
	p.mu.Lock()
	if p.intc != nil {
		p.intc.Ack(p.completion)
	}
	done := p.active
	p.dirty[done] = true
	next := 1 - done
	if p.dirty[next] {
		// The main loop has not refilled next since its last drain: it
		// is replayed as is and counted as an underrun, and its flag is
		// cleared so the buffer DMA drains is never flagged dirty.
		p.dirty[next] = false
		p.stats.Underruns++
	}
	p.active = next
	p.mu.Unlock()

	if err := p.armTransfer(next); err != nil {
		p.mu.Lock()
		p.stats.FatalUnderruns++
		p.mu.Unlock()
		p.Stop()
	}
}

// armTransfer arms the DMA channel to drain buffers[idx] into the
// sink, with onDMAComplete wired as the completion callback.
func (p *Pipeline) armTransfer(idx int) error {
	if p.dmaEngine == nil {
		return nil
	}
	src := &int16BufferSource{samples: p.buffers[idx]}
	return p.dmaEngine.Arm(p.channel, dma.ChannelConfig{
		Source:           src,
		Dest:             p.sink,
		Length:           uint32(len(p.buffers[idx]) * 2),
		Burst:            p.burstBytes,
		CompletionSource: p.completion,
		OnComplete:       p.onDMAComplete,
	})
}

// Stats returns a snapshot of the underrun counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Running reports whether the pipeline is between Start and Stop.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Paused reports the current pause state.
func (p *Pipeline) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// int16BufferSource adapts an interleaved int16 sample buffer into a
// read-only dma.Endpoint, matching dma.MemoryEndpoint's role but
// encoding each sample little-endian as I2S expects.
type int16BufferSource struct {
	samples []int16
}

func (s *int16BufferSource) Transfer(offset uint32, buf []byte) (int, error) {
	byteLen := len(s.samples) * 2
	if int(offset) >= byteLen {
		return 0, nil
	}
	n := 0
	for n < len(buf) && int(offset)+n < byteLen {
		sampleIdx := (int(offset) + n) / 2
		sampleByte := (int(offset) + n) % 2
		v := uint16(s.samples[sampleIdx])
		if sampleByte == 0 {
			buf[n] = byte(v)
		} else {
			buf[n] = byte(v >> 8)
		}
		n++
	}
	return n, nil
}
