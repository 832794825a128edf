package dma

import (
	"errors"
	"testing"

	"wavepod/internal/bus"
	"wavepod/internal/intc"
	"wavepod/internal/log"
)

func TestChannelTransferCompletesAndRaisesInterrupt(t *testing.T) {
	ic := intc.New()
	ic.SetGlobalEnable(true)
	ic.SetEnabled(intc.SourceDMA, true)

	e := New(1, ic)
	src := &MemoryEndpoint{Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	dstMem := &MemoryEndpoint{Data: make([]byte, 8)}
	dst := &MemoryDest{MemoryEndpoint: dstMem}

	completed := false
	err := e.Arm(0, ChannelConfig{
		Source:           src,
		Dest:             dst,
		Length:           8,
		Burst:            3,
		CompletionSource: intc.SourceDMA,
		OnComplete:       func() { completed = true },
	})
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}

	for i := 0; i < 3 && e.Busy(0); i++ {
		e.Tick()
	}

	if e.Busy(0) {
		t.Fatal("channel should have completed after 3 bursts of 3/3/2")
	}
	if !completed {
		t.Fatal("OnComplete was not invoked")
	}
	if !ic.PendingIRQ() {
		t.Fatal("expected DMA completion interrupt pending")
	}
	for i, want := range src.Data {
		if dstMem.Data[i] != want {
			t.Errorf("dst[%d] = %d, want %d", i, dstMem.Data[i], want)
		}
	}
}

func TestArmRejectsBusyChannel(t *testing.T) {
	e := New(1, nil)
	src := &MemoryEndpoint{Data: make([]byte, 4)}
	dst := &MemoryDest{MemoryEndpoint: &MemoryEndpoint{Data: make([]byte, 4)}}
	cfg := ChannelConfig{Source: src, Dest: dst, Length: 4, Burst: 1}

	if err := e.Arm(0, cfg); err != nil {
		t.Fatalf("first Arm: %v", err)
	}
	if err := e.Arm(0, cfg); !errors.Is(err, ErrChannelBusy) {
		t.Fatalf("second Arm error = %v, want ErrChannelBusy", err)
	}
}

func TestAbortStopsChannelWithoutCompletion(t *testing.T) {
	e := New(1, nil)
	src := &MemoryEndpoint{Data: make([]byte, 16)}
	dst := &MemoryDest{MemoryEndpoint: &MemoryEndpoint{Data: make([]byte, 16)}}
	completed := false
	e.Arm(0, ChannelConfig{Source: src, Dest: dst, Length: 16, Burst: 1, OnComplete: func() { completed = true }})

	e.Tick()
	if !e.Busy(0) {
		t.Fatal("channel should still be running after one small burst")
	}
	if err := e.Abort(0); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if e.Busy(0) {
		t.Fatal("channel should be idle after Abort")
	}
	e.Tick()
	if completed {
		t.Fatal("OnComplete must not fire after Abort")
	}
}

func TestShortSourceReadInvokesUnderflow(t *testing.T) {
	e := New(1, nil)
	src := &MemoryEndpoint{Data: []byte{1, 2}} // shorter than Length
	dst := &MemoryDest{MemoryEndpoint: &MemoryEndpoint{Data: make([]byte, 8)}}
	var underflowed bool
	e.Arm(0, ChannelConfig{
		Source:      src,
		Dest:        dst,
		Length:      8,
		Burst:       8,
		OnUnderflow: func() { underflowed = true },
	})
	e.Tick()
	if !underflowed {
		t.Fatal("expected OnUnderflow on short source read")
	}
	if e.Busy(0) {
		t.Fatal("channel should be stopped after underflow")
	}
}

func TestBusSourceAndDestRoundTrip(t *testing.T) {
	b := bus.New(log.Nop())
	e := New(1, nil)

	// Seed SDRAM with a pattern via WriteByte, then DMA it to another
	// SDRAM offset via BusSource/BusDest.
	for i := uint32(0); i < 8; i++ {
		if err := b.WriteByte(bus.SDRAMBase+i, byte(0x10+i)); err != nil {
			t.Fatalf("seed WriteByte: %v", err)
		}
	}
	src := &BusSource{Bus: b, Base: bus.SDRAMBase}
	dst := &BusDest{Bus: b, Base: bus.SDRAMBase + 0x1000}
	e.Arm(0, ChannelConfig{Source: src, Dest: dst, Length: 8, Burst: 4})
	e.Tick()
	e.Tick()

	if e.Busy(0) {
		t.Fatal("expected transfer complete after two 4-byte bursts")
	}
	for i := uint32(0); i < 8; i++ {
		got, err := b.ReadByte(bus.SDRAMBase + 0x1000 + i)
		if err != nil {
			t.Fatalf("ReadByte: %v", err)
		}
		if got != byte(0x10+i) {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, got, 0x10+i)
		}
	}
}

func TestUnknownChannelErrors(t *testing.T) {
	e := New(2, nil)
	if err := e.Arm(5, ChannelConfig{}); !errors.Is(err, ErrNoSuchChannel) {
		t.Errorf("Arm(5) error = %v, want ErrNoSuchChannel", err)
	}
	if err := e.Abort(-1); !errors.Is(err, ErrNoSuchChannel) {
		t.Errorf("Abort(-1) error = %v, want ErrNoSuchChannel", err)
	}
}
