package dma

import "wavepod/internal/bus"

// BusSource and BusDest adapt the system bus into DMA Endpoints, reading or
// writing one byte at a time starting at Base+offset. Byte-at-a-time access
// keeps these endpoints correct regardless of burst alignment; callers that
// need throughput pick a larger Burst in ChannelConfig rather than relying
// on word-sized transfers here.

// BusSource reads from the bus into buf.
type BusSource struct {
	Bus  *bus.Bus
	Base uint32
}

func (e *BusSource) Transfer(offset uint32, buf []byte) (int, error) {
	for i := range buf {
		v, err := e.Bus.ReadByte(e.Base + offset + uint32(i))
		if err != nil {
			return i, err
		}
		buf[i] = v
	}
	return len(buf), nil
}

// BusDest writes buf into the bus.
type BusDest struct {
	Bus  *bus.Bus
	Base uint32
}

func (e *BusDest) Transfer(offset uint32, buf []byte) (int, error) {
	for i, v := range buf {
		if err := e.Bus.WriteByte(e.Base+offset+uint32(i), v); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// MemoryEndpoint is an Endpoint backed directly by a Go byte slice (an ATA
// sector buffer, or an audio ring-buffer half), used when one side of the
// transfer is host memory rather than guest-addressed bus space. Its own
// Transfer is the Source role (it fills buf by copying out of Data); the
// Dest role is MemoryDest, which wraps it, mirroring how BusSource/BusDest
// split the same distinction for bus-backed endpoints.
type MemoryEndpoint struct {
	Data []byte
}

// Transfer implements the Source role: it fills buf from Data[offset:].
func (e *MemoryEndpoint) Transfer(offset uint32, buf []byte) (int, error) {
	if int(offset) >= len(e.Data) {
		return 0, nil
	}
	return copy(buf, e.Data[offset:]), nil
}

// MemoryDest wraps a MemoryEndpoint for the Dest role: Transfer consumes
// buf by copying it into Data[offset:].
type MemoryDest struct {
	*MemoryEndpoint
}

func (e *MemoryDest) Transfer(offset uint32, buf []byte) (int, error) {
	if int(offset) >= len(e.Data) {
		return 0, nil
	}
	return copy(e.Data[offset:], buf), nil
}

// FIFOWriter is implemented by a fixed-size hardware FIFO (the I2S
// transmit FIFO) that DMA drains bytes into. Unlike MemoryEndpoint it has
// no addressable offset: every write appends to the FIFO's tail.
type FIFOWriter interface {
	WriteFIFO(b []byte) (int, error)
}

// FIFODest adapts a FIFOWriter into a DMA Endpoint, ignoring offset since a
// FIFO has no addressable position.
type FIFODest struct {
	FIFO FIFOWriter
}

func (e *FIFODest) Transfer(offset uint32, buf []byte) (int, error) {
	return e.FIFO.WriteFIFO(buf)
}
