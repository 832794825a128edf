package arm

// Condition is the four-bit condition-code field present in every ARM
// instruction encoding (bits 31-28).
type Condition uint8

const (
	CondEQ Condition = 0x0
	CondNE Condition = 0x1
	CondCS Condition = 0x2
	CondCC Condition = 0x3
	CondMI Condition = 0x4
	CondPL Condition = 0x5
	CondVS Condition = 0x6
	CondVC Condition = 0x7
	CondHI Condition = 0x8
	CondLS Condition = 0x9
	CondGE Condition = 0xA
	CondLT Condition = 0xB
	CondGT Condition = 0xC
	CondLE Condition = 0xD
	CondAL Condition = 0xE
	CondNV Condition = 0xF
)

// Satisfied evaluates the condition against the N/Z/C/V flags, per the ARM
// architectural condition-code table.
func (c Condition) Satisfied(n, z, cf, v bool) bool {
	switch c {
	case CondEQ:
		return z
	case CondNE:
		return !z
	case CondCS:
		return cf
	case CondCC:
		return !cf
	case CondMI:
		return n
	case CondPL:
		return !n
	case CondVS:
		return v
	case CondVC:
		return !v
	case CondHI:
		return cf && !z
	case CondLS:
		return !cf || z
	case CondGE:
		return n == v
	case CondLT:
		return n != v
	case CondGT:
		return !z && n == v
	case CondLE:
		return z || n != v
	case CondAL:
		return true
	default: // CondNV: reserved, architecturally "never" pre-v5
		return false
	}
}

// Kind tags the decoded-instruction union of spec.md §3.
type Kind int

const (
	KindUndefined Kind = iota
	KindDataProcessing
	KindMultiply
	KindMultiplyLong
	KindSingleTransfer
	KindHalfwordTransfer
	KindBlockTransfer
	KindBranch
	KindBranchExchange
	KindSoftwareInterrupt
	KindPSRTransfer
	KindSwap
	KindCoprocessor
)

// Operand2 is data-processing's second operand: either a rotated 8-bit
// immediate, or a register optionally shifted by an immediate or by the
// low byte of another register.
type Operand2 struct {
	IsImmediate bool
	Imm8        uint32
	RotateField uint32 // immediate form: 4-bit rotate field (doubled at use)

	Reg         uint8 // register form
	Shift       ShiftKind
	ShiftByReg  bool
	ShiftAmount uint32 // immediate shift amount (ShiftByReg == false)
	ShiftReg    uint8  // register supplying shift amount (ShiftByReg == true)
}

// Instruction is the decoded tagged union. Only the fields relevant to Kind
// are meaningful.
type Instruction struct {
	Raw  uint32
	Cond Condition
	Kind Kind

	// Data processing / PSR transfer.
	Opcode  uint8 // 4-bit ALU opcode (AND..MVN) or PSR-transfer subop
	SetCC   bool
	Rn      uint8
	Rd      uint8
	Op2     Operand2
	UsePSR  bool // PSR transfer: operate on SPSR rather than CPSR
	ToPSR   bool // PSR transfer: MSR (true) vs MRS (false)
	PSRMask uint32

	// Multiply / multiply-long.
	RdHi, RdLo, Rm, Rs uint8
	Accumulate         bool
	Signed             bool

	// Single/halfword transfer.
	Load        bool
	Byte        bool
	Pre         bool
	Up          bool
	WriteBack   bool
	Signed_     bool // halfword: sign-extend
	Half        bool // halfword: transfer a halfword instead of byte
	OffsetIsReg bool
	OffsetReg   uint8
	OffsetImm   uint32
	OffsetShift Operand2

	// Block transfer.
	RegList  uint16
	LoadPSR  bool // S-bit: user-bank transfer / CPSR restore on LDM with R15

	// Branch.
	BranchOffset int32 // sign-extended, already *4
	Link         bool

	// Software interrupt.
	SWIComment uint32

	// Swap.
	SwapByte bool
}

// Decode decodes a 32-bit little-endian ARM-state instruction word. Thumb
// decode is out of scope per spec.md §4.4 ("Thumb is decoded but not
// required to execute the firmware's hot paths"); Decode always decodes
// the word as an ARM-state instruction, and CPU.Step does not call it in
// Thumb state but raises an undefined-instruction exception instead.
func Decode(word uint32) Instruction {
	ins := Instruction{Raw: word, Cond: Condition(word >> 28 & 0xF)}

	switch {
	case word&0x0FFFFFF0 == 0x012FFF10:
		ins.Kind = KindBranchExchange
		ins.Rm = uint8(word & 0xF)
		return ins

	case word&0x0FC000F0 == 0x00000090:
		ins.Kind = KindMultiply
		ins.Accumulate = word&(1<<21) != 0
		ins.SetCC = word&(1<<20) != 0
		ins.RdHi = uint8(word >> 16 & 0xF) // Rd for short multiply
		ins.Rn = uint8(word >> 12 & 0xF)   // Rn (accumulate addend)
		ins.Rs = uint8(word >> 8 & 0xF)
		ins.Rm = uint8(word & 0xF)
		return ins

	case word&0x0F8000F0 == 0x00800090:
		ins.Kind = KindMultiplyLong
		ins.Signed = word&(1<<22) != 0
		ins.Accumulate = word&(1<<21) != 0
		ins.SetCC = word&(1<<20) != 0
		ins.RdHi = uint8(word >> 16 & 0xF)
		ins.RdLo = uint8(word >> 12 & 0xF)
		ins.Rs = uint8(word >> 8 & 0xF)
		ins.Rm = uint8(word & 0xF)
		return ins

	case word&0x0FB00FF0 == 0x01000090:
		ins.Kind = KindSwap
		ins.SwapByte = word&(1<<22) != 0
		ins.Rn = uint8(word >> 16 & 0xF)
		ins.Rd = uint8(word >> 12 & 0xF)
		ins.Rm = uint8(word & 0xF)
		return ins

	case word&0x0E000090 == 0x00000090:
		// Halfword / signed transfer family (bits 27:25=000, bit7=1, bit4=1).
		return decodeHalfwordTransfer(ins, word)

	case word>>26&0x3 == 0 && word>>23&0x3 == 0x2 && word>>20&0x1 == 0:
		// PSR transfer space: bits27:26=00, bits24:23=10, S(bit20)=0 --
		// the bit pattern that otherwise would decode as the always-S=1
		// TST/TEQ/CMP/CMN compare family, repurposed for MRS (bit21=0) or
		// MSR (bit21=1).
		if word&(1<<21) == 0 {
			ins.Kind = KindPSRTransfer
			ins.ToPSR = false
			ins.UsePSR = word&(1<<22) != 0
			ins.Rd = uint8(word >> 12 & 0xF)
			return ins
		}
		return decodeMSR(ins, word)

	case word&0x0C000000 == 0x00000000:
		return decodeDataProcessing(ins, word)

	case word&0x0C000000 == 0x04000000:
		return decodeSingleTransfer(ins, word)

	case word&0x0E000000 == 0x08000000:
		return decodeBlockTransfer(ins, word)

	case word&0x0E000000 == 0x0A000000:
		ins.Kind = KindBranch
		ins.Link = word&(1<<24) != 0
		offset := word & 0x00FFFFFF
		signExtended := int32(offset<<8) >> 8 // sign-extend 24-bit
		ins.BranchOffset = signExtended * 4
		return ins

	case word&0x0F000000 == 0x0F000000:
		ins.Kind = KindSoftwareInterrupt
		ins.SWIComment = word & 0x00FFFFFF
		return ins

	case word&0x0C000000 == 0x0C000000:
		ins.Kind = KindCoprocessor
		return ins
	}

	ins.Kind = KindUndefined
	return ins
}

func decodeMSR(ins Instruction, word uint32) Instruction {
	ins.Kind = KindPSRTransfer
	ins.ToPSR = true
	ins.UsePSR = word&(1<<22) != 0
	ins.PSRMask = 0
	if word&(1<<19) != 0 {
		ins.PSRMask |= 0xFF000000 // flags field (f)
	}
	if word&(1<<16) != 0 {
		ins.PSRMask |= 0x000000FF // control field (c)
	}
	if word&(1<<25) != 0 {
		ins.Op2.IsImmediate = true
		ins.Op2.Imm8 = word & 0xFF
		ins.Op2.RotateField = word >> 8 & 0xF
	} else {
		ins.Op2.Reg = uint8(word & 0xF)
	}
	return ins
}

func decodeDataProcessing(ins Instruction, word uint32) Instruction {
	ins.Kind = KindDataProcessing
	ins.Opcode = uint8(word >> 21 & 0xF)
	ins.SetCC = word&(1<<20) != 0
	ins.Rn = uint8(word >> 16 & 0xF)
	ins.Rd = uint8(word >> 12 & 0xF)

	if word&(1<<25) != 0 {
		ins.Op2.IsImmediate = true
		ins.Op2.Imm8 = word & 0xFF
		ins.Op2.RotateField = word >> 8 & 0xF
	} else {
		ins.Op2.Reg = uint8(word & 0xF)
		ins.Op2.Shift = ShiftKind(word >> 5 & 0x3)
		if word&(1<<4) != 0 {
			ins.Op2.ShiftByReg = true
			ins.Op2.ShiftReg = uint8(word >> 8 & 0xF)
		} else {
			ins.Op2.ShiftAmount = word >> 7 & 0x1F
		}
	}
	return ins
}

func decodeSingleTransfer(ins Instruction, word uint32) Instruction {
	ins.Kind = KindSingleTransfer
	ins.Pre = word&(1<<24) != 0
	ins.Up = word&(1<<23) != 0
	ins.Byte = word&(1<<22) != 0
	ins.WriteBack = word&(1<<21) != 0
	ins.Load = word&(1<<20) != 0
	ins.Rn = uint8(word >> 16 & 0xF)
	ins.Rd = uint8(word >> 12 & 0xF)

	if word&(1<<25) != 0 {
		ins.OffsetIsReg = true
		ins.OffsetReg = uint8(word & 0xF)
		ins.OffsetShift.Shift = ShiftKind(word >> 5 & 0x3)
		ins.OffsetShift.ShiftAmount = word >> 7 & 0x1F
	} else {
		ins.OffsetImm = word & 0xFFF
	}
	return ins
}

func decodeHalfwordTransfer(ins Instruction, word uint32) Instruction {
	ins.Kind = KindHalfwordTransfer
	ins.Pre = word&(1<<24) != 0
	ins.Up = word&(1<<23) != 0
	ins.WriteBack = word&(1<<21) != 0
	ins.Load = word&(1<<20) != 0
	ins.Rn = uint8(word >> 16 & 0xF)
	ins.Rd = uint8(word >> 12 & 0xF)

	ins.Signed_ = word&(1<<6) != 0
	ins.Half = word&(1<<5) != 0

	if word&(1<<22) != 0 {
		// Immediate offset: split across bits 11:8 and 3:0.
		ins.OffsetImm = (word >> 4 & 0xF0) | (word & 0xF)
	} else {
		ins.OffsetIsReg = true
		ins.OffsetReg = uint8(word & 0xF)
	}
	return ins
}

func decodeBlockTransfer(ins Instruction, word uint32) Instruction {
	ins.Kind = KindBlockTransfer
	ins.Pre = word&(1<<24) != 0
	ins.Up = word&(1<<23) != 0
	ins.LoadPSR = word&(1<<22) != 0
	ins.WriteBack = word&(1<<21) != 0
	ins.Load = word&(1<<20) != 0
	ins.Rn = uint8(word >> 16 & 0xF)
	ins.RegList = uint16(word & 0xFFFF)
	return ins
}
