//go:build linux

package hostio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOWheel is the real-hardware WheelSource: the scroll wheel and
// button cluster are exactly a GPIO-adjacent input device, polled
// through go-gpiocdev one requested line per signal rather than an
// event stream, so Poll's cadence (driven by the host tick loop, same
// as every other peripheral here) is what determines delta
// granularity rather than a separate edge-interrupt path.
type GPIOWheel struct {
	chip string

	buttonLines map[Buttons]*gpiocdev.Line
	quadA       *gpiocdev.Line
	quadB       *gpiocdev.Line
	touchLine   *gpiocdev.Line

	lastQuadA int
	accum     int
}

// WheelPins names the GPIO line offsets on chip for each signal.
type WheelPins struct {
	Select, Right, Left, Play, Menu, Hold int
	QuadA, QuadB                          int
	Touch                                 int
}

// NewGPIOWheel requests one input line per pin on the named gpiochip
// device (e.g. "gpiochip0").
func NewGPIOWheel(chip string, pins WheelPins) (*GPIOWheel, error) {
	w := &GPIOWheel{chip: chip, buttonLines: make(map[Buttons]*gpiocdev.Line, 6)}

	buttonOffsets := map[Buttons]int{
		ButtonSelect: pins.Select,
		ButtonRight:  pins.Right,
		ButtonLeft:   pins.Left,
		ButtonPlay:   pins.Play,
		ButtonMenu:   pins.Menu,
		ButtonHold:   pins.Hold,
	}
	for b, offset := range buttonOffsets {
		line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("hostio: requesting button line %d: %w", offset, err)
		}
		w.buttonLines[b] = line
	}

	var err error
	if w.quadA, err = gpiocdev.RequestLine(chip, pins.QuadA, gpiocdev.AsInput); err != nil {
		w.Close()
		return nil, fmt.Errorf("hostio: requesting quadrature A line: %w", err)
	}
	if w.quadB, err = gpiocdev.RequestLine(chip, pins.QuadB, gpiocdev.AsInput); err != nil {
		w.Close()
		return nil, fmt.Errorf("hostio: requesting quadrature B line: %w", err)
	}
	if w.touchLine, err = gpiocdev.RequestLine(chip, pins.Touch, gpiocdev.AsInput); err != nil {
		w.Close()
		return nil, fmt.Errorf("hostio: requesting touch line: %w", err)
	}

	w.lastQuadA, _ = w.quadA.Value()
	return w, nil
}

// Poll reads the current button and quadrature state. A quadrature
// rising edge on A advances delta by +1 or -1 depending on B's level
// at that instant, the standard two-bit gray-code decode for a
// quadrature scroll wheel.
func (w *GPIOWheel) Poll() (WheelSample, error) {
	var sample WheelSample

	for b, line := range w.buttonLines {
		v, err := line.Value()
		if err != nil {
			return sample, fmt.Errorf("hostio: reading button line: %w", err)
		}
		if v != 0 {
			sample.Buttons |= b
		}
	}

	a, err := w.quadA.Value()
	if err != nil {
		return sample, fmt.Errorf("hostio: reading quadrature A: %w", err)
	}
	if a == 1 && w.lastQuadA == 0 {
		bVal, err := w.quadB.Value()
		if err != nil {
			return sample, fmt.Errorf("hostio: reading quadrature B: %w", err)
		}
		if bVal == 0 {
			w.accum++
		} else {
			w.accum--
		}
	}
	w.lastQuadA = a
	sample.Delta = w.accum
	w.accum = 0

	t, err := w.touchLine.Value()
	if err != nil {
		return sample, fmt.Errorf("hostio: reading touch line: %w", err)
	}
	sample.Touch = t != 0

	return sample, nil
}

// Close releases every requested GPIO line.
func (w *GPIOWheel) Close() error {
	var firstErr error
	release := func(l *gpiocdev.Line) {
		if l == nil {
			return
		}
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, l := range w.buttonLines {
		release(l)
	}
	release(w.quadA)
	release(w.quadB)
	release(w.touchLine)
	return firstErr
}
