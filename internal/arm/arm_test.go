package arm

import "testing"

// memBus is a flat byte-addressed Bus fake for exercising the executor
// without internal/bus's region/fault machinery.
type memBus struct {
	mem map[uint32]byte
}

func newMemBus() *memBus { return &memBus{mem: make(map[uint32]byte)} }

func (m *memBus) ReadWord(addr uint32) (uint32, error) {
	return uint32(m.mem[addr]) | uint32(m.mem[addr+1])<<8 | uint32(m.mem[addr+2])<<16 | uint32(m.mem[addr+3])<<24, nil
}

func (m *memBus) WriteWord(addr uint32, v uint32) error {
	m.mem[addr] = byte(v)
	m.mem[addr+1] = byte(v >> 8)
	m.mem[addr+2] = byte(v >> 16)
	m.mem[addr+3] = byte(v >> 24)
	return nil
}

func (m *memBus) ReadHalf(addr uint32) (uint16, error) {
	return uint16(m.mem[addr]) | uint16(m.mem[addr+1])<<8, nil
}

func (m *memBus) WriteHalf(addr uint32, v uint16) error {
	m.mem[addr] = byte(v)
	m.mem[addr+1] = byte(v >> 8)
	return nil
}

func (m *memBus) ReadByte(addr uint32) (uint8, error)        { return m.mem[addr], nil }
func (m *memBus) WriteByte(addr uint32, v uint8) error        { m.mem[addr] = v; return nil }
func (m *memBus) putWord(addr uint32, v uint32)               { m.WriteWord(addr, v) }

func newCPU() (*CPU, *memBus) {
	b := newMemBus()
	cpu := NewCPU(b)
	cpu.State.SetMode(ModeUser) // simplify: start out of the reset SVC bank
	cpu.State.CPSR &^= FlagI | FlagF // reset leaves both masked; tests want a clean slate
	return cpu, b
}

func TestConditionCodes(t *testing.T) {
	cases := []struct {
		c                Condition
		n, z, cf, v, want bool
	}{
		{CondEQ, false, true, false, false, true},
		{CondEQ, false, false, false, false, false},
		{CondNE, false, false, false, false, true},
		{CondCS, false, false, true, false, true},
		{CondGE, true, false, false, true, true},
		{CondGE, true, false, false, false, false},
		{CondGT, false, false, false, false, true},
		{CondGT, true, false, false, false, false},
		{CondLE, false, true, false, false, true},
		{CondAL, false, false, false, false, true},
		{CondNV, true, true, true, true, false},
	}
	for _, tc := range cases {
		if got := tc.c.Satisfied(tc.n, tc.z, tc.cf, tc.v); got != tc.want {
			t.Errorf("%v.Satisfied(%v,%v,%v,%v) = %v, want %v", tc.c, tc.n, tc.z, tc.cf, tc.v, got, tc.want)
		}
	}
}

func TestShiftLSLZeroPassesCarryThrough(t *testing.T) {
	result, carry := Shift(ShiftLSL, 0xFFFFFFFF, 0, true)
	if result != 0xFFFFFFFF || !carry {
		t.Errorf("LSL #0 = 0x%X,%v, want unchanged value and carry-in preserved", result, carry)
	}
}

func TestShiftLSR32(t *testing.T) {
	result, carry := Shift(ShiftLSR, 0x80000000, 32, false)
	if result != 0 || !carry {
		t.Errorf("LSR #32 of 0x80000000 = 0x%X,%v, want 0,true", result, carry)
	}
}

func TestShiftASRNegativeSignExtends(t *testing.T) {
	result, _ := Shift(ShiftASR, 0x80000000, 31, false)
	if result != 0xFFFFFFFF {
		t.Errorf("ASR #31 of 0x80000000 = 0x%X, want 0xFFFFFFFF", result)
	}
}

func TestShiftRORZeroIsRRX(t *testing.T) {
	result, carry := Shift(ShiftROR, 0x00000001, 0, true)
	if result != 0x80000000 || !carry {
		t.Errorf("RRX of 1 with carry-in set = 0x%X,%v, want 0x80000000,true", result, carry)
	}
}

func TestRotateRight32Immediate(t *testing.T) {
	// imm8=0xFF rotated right by 2*4=8 bits.
	result, carry := RotateRight32(0xFF, 4, false)
	if result != 0xFF000000 || !carry {
		t.Errorf("RotateRight32(0xFF,4) = 0x%X,%v, want 0xFF000000,true", result, carry)
	}
}

func TestModeSwitchBanksSPAndLR(t *testing.T) {
	s := NewState()
	s.SetMode(ModeUser)
	s.R[13] = 0x1000
	s.R[14] = 0x2000

	s.SetMode(ModeSupervisor)
	if s.R[13] == 0x1000 {
		t.Fatal("SVC SP should not alias User SP after switching modes")
	}
	s.R[13] = 0x3000

	s.SetMode(ModeUser)
	if s.R[13] != 0x1000 || s.R[14] != 0x2000 {
		t.Errorf("returning to User mode: SP=0x%X LR=0x%X, want 0x1000,0x2000", s.R[13], s.R[14])
	}

	s.SetMode(ModeSupervisor)
	if s.R[13] != 0x3000 {
		t.Errorf("returning to SVC mode: SP=0x%X, want 0x3000", s.R[13])
	}
}

func TestFIQBanksR8ThroughR12(t *testing.T) {
	s := NewState()
	s.SetMode(ModeUser)
	for r := uint8(8); r <= 12; r++ {
		s.R[r] = uint32(r)
	}
	s.SetMode(ModeFIQ)
	for r := uint8(8); r <= 12; r++ {
		if s.R[r] == uint32(r) {
			t.Fatalf("R%d should be banked away from User's value on entering FIQ", r)
		}
		s.R[r] = uint32(r) + 100
	}
	s.SetMode(ModeUser)
	for r := uint8(8); r <= 12; r++ {
		if s.R[r] != uint32(r) {
			t.Errorf("R%d = %d after returning to User, want %d", r, s.R[r], r)
		}
	}
}

func TestDataProcessingADDSetsFlags(t *testing.T) {
	cpu, _ := newCPU()
	cpu.State.R[1] = 0xFFFFFFFF
	cpu.State.R[2] = 1
	// ADDS R0, R1, R2
	ins := Instruction{
		Kind: KindDataProcessing, Opcode: opADD, SetCC: true,
		Rn: 1, Rd: 0, Op2: Operand2{Reg: 2},
	}
	cpu.execute(ins, 0)
	if cpu.State.R[0] != 0 {
		t.Errorf("R0 = 0x%X, want 0", cpu.State.R[0])
	}
	if !cpu.State.Z() || !cpu.State.C() {
		t.Errorf("expected Z and C set after 0xFFFFFFFF+1 overflow, got Z=%v C=%v", cpu.State.Z(), cpu.State.C())
	}
}

func TestDataProcessingMOVImmediate(t *testing.T) {
	cpu, _ := newCPU()
	ins := Instruction{
		Kind: KindDataProcessing, Opcode: opMOV, Rd: 3,
		Op2: Operand2{IsImmediate: true, Imm8: 0xAB, RotateField: 0},
	}
	cpu.execute(ins, 0)
	if cpu.State.R[3] != 0xAB {
		t.Errorf("R3 = 0x%X, want 0xAB", cpu.State.R[3])
	}
}

func TestBranchWithLinkComputesTargetAndLR(t *testing.T) {
	cpu, _ := newCPU()
	cpu.State.SetPC(0x1000)
	word := Decode(0xEB000002) // BL with a positive 24-bit offset of 2 (=> +8 bytes)
	err := cpu.execute(word, 0x1000)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	wantTarget := uint32(0x1000 + 8 + 8) // fetchAddr+8 (PC bias) + offset*4
	if cpu.State.PC() != wantTarget {
		t.Errorf("PC = 0x%X, want 0x%X", cpu.State.PC(), wantTarget)
	}
	if cpu.State.R[14] != 0x1004 {
		t.Errorf("LR = 0x%X, want 0x1004 (fetchAddr+4)", cpu.State.R[14])
	}
}

func TestSoftwareInterruptEntersSVCModeWithLRAndVector(t *testing.T) {
	cpu, bus := newCPU()
	cpu.State.SetPC(0x8000)
	bus.putWord(0x8000, 0xEF000001) // SWI #1

	if err := cpu.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cpu.State.CurrentMode() != ModeSupervisor {
		t.Fatalf("mode = %v, want svc", cpu.State.CurrentMode())
	}
	if cpu.State.PC() != 0x08 {
		t.Errorf("PC = 0x%X, want 0x08 (SWI vector)", cpu.State.PC())
	}
	if cpu.State.R[14] != 0x8004 {
		t.Errorf("LR = 0x%X, want 0x8004", cpu.State.R[14])
	}
	if !cpu.State.IRQDisabled() {
		t.Error("expected IRQ masked after SWI entry")
	}
	if cpu.State.FIQDisabled() {
		t.Error("FIQ should remain unmasked after SWI (only Reset/FIQ mask it)")
	}
}

func TestDataAbortLRIsFetchPlusEight(t *testing.T) {
	cpu, _ := newCPU()
	// STR R0, [R1] (a word store, so WriteWord): use a bus stub that
	// faults on every access.
	cpu.Bus = faultingBus{}
	cpu.State.R[1] = 0x4000
	ins := Instruction{Kind: KindSingleTransfer, Load: false, Pre: true, Up: true, Rn: 1, Rd: 0}
	if err := cpu.execute(ins, 0x100); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if cpu.State.CurrentMode() != ModeAbort {
		t.Fatalf("mode = %v, want abt", cpu.State.CurrentMode())
	}
	if cpu.State.R[14] != 0x108 {
		t.Errorf("LR = 0x%X, want 0x108 (fetchAddr+8)", cpu.State.R[14])
	}
}

type faultingBus struct{}

func (faultingBus) ReadWord(addr uint32) (uint32, error)  { return 0, errFault }
func (faultingBus) WriteWord(addr uint32, v uint32) error { return errFault }
func (faultingBus) ReadHalf(addr uint32) (uint16, error)  { return 0, errFault }
func (faultingBus) WriteHalf(addr uint32, v uint16) error { return errFault }
func (faultingBus) ReadByte(addr uint32) (uint8, error)   { return 0, errFault }
func (faultingBus) WriteByte(addr uint32, v uint8) error  { return errFault }

var errFault = errTest("bus fault")

type errTest string

func (e errTest) Error() string { return string(e) }

func TestBlockTransferStoresIncrementAfter(t *testing.T) {
	cpu, bus := newCPU()
	cpu.State.R[1] = 0x2000
	cpu.State.R[2] = 0xAAAA
	cpu.State.R[3] = 0xBBBB
	ins := Instruction{
		Kind: KindBlockTransfer, Up: true, Pre: false, WriteBack: true,
		Load: false, Rn: 1, RegList: (1 << 2) | (1 << 3),
	}
	if err := cpu.execute(ins, 0); err != nil {
		t.Fatalf("execute: %v", err)
	}
	v2, _ := bus.ReadWord(0x2000)
	v3, _ := bus.ReadWord(0x2004)
	if v2 != 0xAAAA || v3 != 0xBBBB {
		t.Errorf("got v2=0x%X v3=0x%X, want 0xAAAA,0xBBBB", v2, v3)
	}
	if cpu.State.R[1] != 0x2008 {
		t.Errorf("R1 = 0x%X after STMIA writeback, want 0x2008", cpu.State.R[1])
	}
}

func TestUnalignedWordLoadRotates(t *testing.T) {
	cpu, bus := newCPU()
	bus.putWord(0x2000, 0x11223344)
	cpu.State.R[1] = 0x2001 // unaligned by 1 byte
	ins := Instruction{Kind: KindSingleTransfer, Load: true, Pre: true, Up: true, Rn: 1, Rd: 0}
	if err := cpu.execute(ins, 0); err != nil {
		t.Fatalf("execute: %v", err)
	}
	want, _ := Shift(ShiftROR, 0x11223344, 8, false)
	if cpu.State.R[0] != want {
		t.Errorf("R0 = 0x%X, want 0x%X (rotated by 8)", cpu.State.R[0], want)
	}
}

func TestMRSReadsCPSR(t *testing.T) {
	cpu, _ := newCPU()
	cpu.State.SetNZCV(true, false, true, false)
	word := uint32(0xE10F0000) // MRS R0, CPSR
	ins := Decode(word)
	if ins.Kind != KindPSRTransfer || ins.ToPSR {
		t.Fatalf("Decode(0x%08X) = %+v, want MRS", word, ins)
	}
	cpu.execute(ins, 0)
	if cpu.State.R[0] != cpu.State.CPSR {
		t.Errorf("R0 = 0x%X, want CPSR 0x%X", cpu.State.R[0], cpu.State.CPSR)
	}
}

func TestMSRWritesFlagsField(t *testing.T) {
	cpu, _ := newCPU()
	word := uint32(0xE328F4FF) // MSR CPSR_f, #0xFF rotated right 8 -> 0xFF000000
	ins := Decode(word)
	if ins.Kind != KindPSRTransfer || !ins.ToPSR {
		t.Fatalf("Decode(0x%08X) = %+v, want MSR", word, ins)
	}
	cpu.execute(ins, 0)
	if !cpu.State.N() || !cpu.State.Z() || !cpu.State.C() || !cpu.State.V() {
		t.Errorf("expected all NZCV set after MSR CPSR_f,#0xFF, CPSR=0x%X", cpu.State.CPSR)
	}
}

func TestBranchExchangeSwitchesToThumb(t *testing.T) {
	cpu, _ := newCPU()
	cpu.State.R[0] = 0x3001
	ins := Instruction{Kind: KindBranchExchange, Rm: 0}
	if err := cpu.execute(ins, 0); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !cpu.State.Thumb() {
		t.Error("expected Thumb bit set after BX to odd address")
	}
	if cpu.State.PC() != 0x3000 {
		t.Errorf("PC = 0x%X, want 0x3000", cpu.State.PC())
	}
}
