package hostio

import "sync"

// SimWheel is a synthetic WheelSource for the host simulator: tests
// and cmd/wavepod-sim push samples into it (e.g. from synthesized key
// events) and Poll drains what was pushed since the last Poll.
type SimWheel struct {
	mu      sync.Mutex
	pending WheelSample
	touch   bool
}

// NewSimWheel returns a WheelSource with no pending input.
func NewSimWheel() *SimWheel {
	return &SimWheel{}
}

// Push queues a sample to be returned by the next Poll. Unlike a real
// GPIO edge stream, deltas accumulate between polls rather than being
// dropped, so a fast synthetic scroll isn't lost to poll cadence.
func (w *SimWheel) Push(buttons Buttons, delta int, touch bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending.Buttons |= buttons
	w.pending.Delta += delta
	w.touch = touch
}

// Poll returns the accumulated sample since the last Poll and resets
// it to idle.
func (w *SimWheel) Poll() (WheelSample, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sample := WheelSample{Buttons: w.pending.Buttons, Delta: w.pending.Delta, Touch: w.touch}
	w.pending = WheelSample{}
	w.touch = false
	return sample, nil
}

// Close is a no-op; the simulator backend owns no OS resources.
func (w *SimWheel) Close() error {
	return nil
}
