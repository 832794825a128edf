package bus

import "testing"

func TestSDRAMReadWriteWord(t *testing.T) {
	b := New(nil)
	addr := uint32(SDRAMBase + 0x100)
	if err := b.WriteWord(addr, 0xDEADBEEF); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	got, err := b.ReadWord(addr)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Errorf("got 0x%08X, want 0xDEADBEEF", got)
	}
}

func TestWriteToROMFaults(t *testing.T) {
	b := New(nil)
	err := b.WriteWord(BootROMBase, 0x11111111)
	fault, ok := err.(*Fault)
	if !ok || fault.Kind != FaultWriteProtected {
		t.Fatalf("expected write-protected fault, got %v", err)
	}
}

func TestUnmappedReadFaults(t *testing.T) {
	b := New(nil)
	_, err := b.ReadWord(0x90000000)
	fault, ok := err.(*Fault)
	if !ok || fault.Kind != FaultUnmapped {
		t.Fatalf("expected unmapped fault, got %v", err)
	}
}

func TestMisalignedWordFaults(t *testing.T) {
	b := New(nil)
	_, err := b.ReadWord(SDRAMBase + 1)
	fault, ok := err.(*Fault)
	if !ok || fault.Kind != FaultMisaligned {
		t.Fatalf("expected misaligned fault, got %v", err)
	}
}

type fakeDevice struct {
	reg uint32
}

func (f *fakeDevice) ReadReg32(offset uint32) uint32 {
	if offset == 0 {
		return f.reg
	}
	return 0
}

func (f *fakeDevice) WriteReg32(offset uint32, value uint32) {
	if offset == 0 {
		f.reg = value
	}
}

func TestPeripheralByteReadModifyWrite(t *testing.T) {
	b := New(nil)
	dev := &fakeDevice{}
	b.MapPeripheral(0x100, 0x10, dev)

	if err := b.WriteWord(PeripheralBase+0x100, 0x11223344); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	got, err := b.ReadByte(PeripheralBase + 0x101)
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if got != 0x33 {
		t.Errorf("got 0x%02X, want 0x33", got)
	}

	if err := b.WriteByte(PeripheralBase+0x100, 0xFF); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	word, _ := b.ReadWord(PeripheralBase + 0x100)
	if word != 0x112233FF {
		t.Errorf("got 0x%08X, want 0x112233FF", word)
	}
}

func TestROMLoadAndRead(t *testing.T) {
	b := New(nil)
	b.LoadBootROM([]byte{0x01, 0x02, 0x03, 0x04})
	got, err := b.ReadWord(BootROMBase)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != 0x04030201 {
		t.Errorf("got 0x%08X, want 0x04030201", got)
	}
}
