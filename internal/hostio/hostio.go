// Package hostio defines the runtime's external-interface types:
// framebuffer and wheel input. No menu, renderer, or file browser is
// built behind them (those are explicitly out of scope); the types
// exist so that the host simulator and a real-target build can hand
// identical data across the same boundary.
package hostio

// FramebufferWidth and FramebufferHeight are the display's fixed
// resolution.
const (
	FramebufferWidth  = 320
	FramebufferHeight = 240
)

// Framebuffer is a 320x240 row-major array of 16-bit RGB565 pixels.
// The host backend consumes it verbatim; nothing in this codebase
// renders into it.
type Framebuffer struct {
	pixels [FramebufferWidth * FramebufferHeight]uint16
}

// Pixel reads the pixel at (x, y).
func (f *Framebuffer) Pixel(x, y int) uint16 {
	return f.pixels[y*FramebufferWidth+x]
}

// SetPixel writes a single pixel.
func (f *Framebuffer) SetPixel(x, y int, rgb565 uint16) {
	f.pixels[y*FramebufferWidth+x] = rgb565
}

// Fill overwrites the whole frame with a single color.
func (f *Framebuffer) Fill(rgb565 uint16) {
	for i := range f.pixels {
		f.pixels[i] = rgb565
	}
}

// UpdateRect writes rect-shaped data (row-major, len(data) ==
// w*h) into the rectangle [x, x+w) x [y, y+h).
func (f *Framebuffer) UpdateRect(x, y, w, h int, data []uint16) {
	for row := 0; row < h; row++ {
		srcOff := row * w
		dstOff := (y+row)*FramebufferWidth + x
		copy(f.pixels[dstOff:dstOff+w], data[srcOff:srcOff+w])
	}
}

// Raw returns the full backing array for whole-frame consumers (e.g.
// an SDL texture upload) without a copy.
func (f *Framebuffer) Raw() []uint16 {
	return f.pixels[:]
}

// Buttons is a bitmask of the wheel cluster's discrete buttons.
type Buttons uint8

const (
	ButtonSelect Buttons = 1 << iota
	ButtonRight
	ButtonLeft
	ButtonPlay
	ButtonMenu
	ButtonHold // hold switch, carried in the same mask as the buttons
)

// WheelSample is one poll of the wheel input device: the button
// state, a signed scroll delta in wheel positions, and whether the
// capacitive surface currently registers a touch.
type WheelSample struct {
	Buttons Buttons
	Delta   int
	Touch   bool
}

// WheelSource is satisfied by both the real-hardware GPIO backend
// (wheel_linux.go) and a simulator's synthetic input backend, per the
// interface-with-two-concrete-backends split the runtime uses
// throughout for hardware-vs-simulator boundaries.
type WheelSource interface {
	Poll() (WheelSample, error)
	Close() error
}
