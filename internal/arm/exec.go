package arm

import "fmt"

// Bus is the narrow memory-access surface the executor needs; satisfied by
// *bus.Bus without an import-time dependency on its concrete type, so the
// core can be exercised in tests against a minimal fake.
type Bus interface {
	ReadWord(addr uint32) (uint32, error)
	WriteWord(addr uint32, value uint32) error
	ReadHalf(addr uint32) (uint16, error)
	WriteHalf(addr uint32, value uint16) error
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, value uint8) error
}

// ExceptionKind enumerates the seven ARM exceptions, per spec.md §4.4.
type ExceptionKind int

const (
	ExceptionReset ExceptionKind = iota
	ExceptionUndefinedInstruction
	ExceptionSoftwareInterrupt
	ExceptionPrefetchAbort
	ExceptionDataAbort
	ExceptionIRQ
	ExceptionFIQ
)

type excInfo struct {
	vectorOffset uint32
	mode         Mode
	maskFIQ      bool
}

var exceptionTable = map[ExceptionKind]excInfo{
	ExceptionReset:                {0x00, ModeSupervisor, true},
	ExceptionUndefinedInstruction: {0x04, ModeUndefined, false},
	ExceptionSoftwareInterrupt:    {0x08, ModeSupervisor, false},
	ExceptionPrefetchAbort:        {0x0C, ModeAbort, false},
	ExceptionDataAbort:            {0x10, ModeAbort, false},
	ExceptionIRQ:                  {0x18, ModeIRQ, false},
	ExceptionFIQ:                  {0x1C, ModeFIQ, true},
}

// CPU couples a register State to a Bus and drives fetch/decode/execute.
type CPU struct {
	State      *State
	Bus        Bus
	VectorBase uint32 // 0x00000000 (low) or 0xFFFF0000 (high)

	// FIQPending/IRQPending are polled once per Step; callers wire these to
	// internal/intc.Controller.PendingFIQ/PendingIRQ.
	FIQPending func() bool
	IRQPending func() bool

	Cycles uint64
}

// NewCPU creates a CPU in the reset state with the low vector base.
func NewCPU(bus Bus) *CPU {
	return &CPU{State: NewState(), Bus: bus}
}

// Step performs one architectural step: pending-interrupt check (FIQ before
// IRQ), halted check, breakpoint check, fetch, decode, condition
// evaluation, execute. Returns an error only for conditions the caller must
// stop on (a bus fault escaping exception delivery itself, which cannot
// happen in practice since vector fetches are always to mapped ROM/SDRAM,
// but is surfaced rather than panicking if it ever does).
func (c *CPU) Step() error {
	if c.FIQPending != nil && c.FIQPending() && !c.State.FIQDisabled() {
		return c.enterException(ExceptionFIQ, c.State.PC()+4)
	}
	if c.IRQPending != nil && c.IRQPending() && !c.State.IRQDisabled() {
		return c.enterException(ExceptionIRQ, c.State.PC()+4)
	}

	if c.State.Halted {
		return nil
	}

	if c.State.Breakpoint != nil && *c.State.Breakpoint == c.State.PC() {
		c.State.Halted = true
		return nil
	}

	fetchAddr := c.State.PC()
	word, err := c.Bus.ReadWord(fetchAddr)
	if err != nil {
		return c.enterException(ExceptionPrefetchAbort, fetchAddr+4)
	}
	c.State.SetPC(fetchAddr + 4)
	c.Cycles++

	if c.State.Thumb() {
		// Thumb execution is out of scope (spec.md §4.4): decoded as
		// undefined, matching how real silicon treats an unimplemented
		// encoding rather than silently skipping it.
		return c.enterException(ExceptionUndefinedInstruction, fetchAddr+4)
	}

	ins := Decode(word)
	n, z, cf, v := c.State.N(), c.State.Z(), c.State.C(), c.State.V()
	if !ins.Cond.Satisfied(n, z, cf, v) {
		return nil
	}

	return c.execute(ins, fetchAddr)
}

// readReg returns the value of register n as an instruction operand would
// see it: PC (R15) reads as fetchAddr+8 per spec.md's "current instruction
// + 8" rule, all other registers read their stored value.
func (c *CPU) readReg(n uint8, fetchAddr uint32) uint32 {
	if n == 15 {
		return fetchAddr + 8
	}
	return c.State.R[n]
}

func (c *CPU) execute(ins Instruction, fetchAddr uint32) error {
	switch ins.Kind {
	case KindDataProcessing:
		return c.execDataProcessing(ins, fetchAddr)
	case KindMultiply:
		return c.execMultiply(ins)
	case KindMultiplyLong:
		return c.execMultiplyLong(ins)
	case KindSingleTransfer:
		return c.execSingleTransfer(ins, fetchAddr)
	case KindHalfwordTransfer:
		return c.execHalfwordTransfer(ins, fetchAddr)
	case KindBlockTransfer:
		return c.execBlockTransfer(ins, fetchAddr)
	case KindBranch:
		return c.execBranch(ins, fetchAddr)
	case KindBranchExchange:
		return c.execBranchExchange(ins, fetchAddr)
	case KindSoftwareInterrupt:
		return c.enterException(ExceptionSoftwareInterrupt, fetchAddr+4)
	case KindPSRTransfer:
		return c.execPSRTransfer(ins, fetchAddr)
	case KindSwap:
		return c.execSwap(ins, fetchAddr)
	case KindCoprocessor:
		// Coprocessor register moves (CP15 et al.) are no-ops per spec.md
		// §4.4: "coprocessor register moves to CP15 (which may be
		// no-ops)".
		return nil
	default:
		return c.enterException(ExceptionUndefinedInstruction, fetchAddr+4)
	}
}

// evalOperand2 evaluates a data-processing Operand2, returning its value
// and the barrel shifter's carry-out.
func (c *CPU) evalOperand2(op Operand2, fetchAddr uint32) (uint32, bool) {
	carryIn := c.State.C()
	if op.IsImmediate {
		return RotateRight32(op.Imm8, op.RotateField, carryIn)
	}

	value := c.readReg(op.Reg, fetchAddr)
	var amount uint32
	if op.ShiftByReg {
		amount = c.readReg(op.ShiftReg, fetchAddr) & 0xFF
		if amount == 0 {
			return value, carryIn
		}
		if amount >= 32 && op.Shift == ShiftLSL {
			if amount == 32 {
				return 0, value&1 != 0
			}
			return 0, false
		}
		return Shift(op.Shift, value, amount, carryIn)
	}

	amount = op.ShiftAmount
	if op.Shift == ShiftLSR || op.Shift == ShiftASR {
		if amount == 0 {
			amount = 32
		}
	}
	return Shift(op.Shift, value, amount, carryIn) // ROR amount==0 means RRX
}

const (
	opAND = 0x0
	opEOR = 0x1
	opSUB = 0x2
	opRSB = 0x3
	opADD = 0x4
	opADC = 0x5
	opSBC = 0x6
	opRSC = 0x7
	opTST = 0x8
	opTEQ = 0x9
	opCMP = 0xA
	opCMN = 0xB
	opORR = 0xC
	opMOV = 0xD
	opBIC = 0xE
	opMVN = 0xF
)

func addWithCarry(a, b uint32, carryIn bool) (result uint32, carryOut, overflow bool) {
	c := uint64(a) + uint64(b)
	if carryIn {
		c++
	}
	result = uint32(c)
	carryOut = c > 0xFFFFFFFF
	sa, sb, sr := int32(a), int32(b), int32(result)
	overflow = (sa >= 0 && sb >= 0 && sr < 0) || (sa < 0 && sb < 0 && sr >= 0)
	return
}

func (c *CPU) execDataProcessing(ins Instruction, fetchAddr uint32) error {
	rn := c.readReg(ins.Rn, fetchAddr)
	op2, shiftCarry := c.evalOperand2(ins.Op2, fetchAddr)

	var result uint32
	var carryOut, overflow bool
	logical := false
	compareOnly := false

	switch ins.Opcode {
	case opAND:
		result = rn & op2
		logical = true
	case opEOR:
		result = rn ^ op2
		logical = true
	case opSUB:
		result, carryOut, overflow = addWithCarry(rn, ^op2, true)
	case opRSB:
		result, carryOut, overflow = addWithCarry(op2, ^rn, true)
	case opADD:
		result, carryOut, overflow = addWithCarry(rn, op2, false)
	case opADC:
		result, carryOut, overflow = addWithCarry(rn, op2, c.State.C())
	case opSBC:
		result, carryOut, overflow = addWithCarry(rn, ^op2, c.State.C())
	case opRSC:
		result, carryOut, overflow = addWithCarry(op2, ^rn, c.State.C())
	case opTST:
		result = rn & op2
		logical = true
		compareOnly = true
	case opTEQ:
		result = rn ^ op2
		logical = true
		compareOnly = true
	case opCMP:
		result, carryOut, overflow = addWithCarry(rn, ^op2, true)
		compareOnly = true
	case opCMN:
		result, carryOut, overflow = addWithCarry(rn, op2, false)
		compareOnly = true
	case opORR:
		result = rn | op2
		logical = true
	case opMOV:
		result = op2
		logical = true
	case opBIC:
		result = rn &^ op2
		logical = true
	case opMVN:
		result = ^op2
		logical = true
	}

	if !compareOnly {
		c.State.R[ins.Rd] = result
	}

	if ins.SetCC {
		if ins.Rd == 15 && !compareOnly {
			// S-bit with R15 as destination: exception-return idiom.
			c.State.RestoreCPSRFromSPSR()
		} else {
			n := result&0x80000000 != 0
			z := result == 0
			var cFlag, vFlag bool
			if logical {
				cFlag, vFlag = shiftCarry, c.State.V()
			} else {
				cFlag, vFlag = carryOut, overflow
			}
			c.State.SetNZCV(n, z, cFlag, vFlag)
		}
	}
	return nil
}

func (c *CPU) execMultiply(ins Instruction) error {
	rm := c.State.R[ins.Rm]
	rs := c.State.R[ins.Rs]
	result := rm * rs
	if ins.Accumulate {
		result += c.State.R[ins.Rn]
	}
	c.State.R[ins.RdHi] = result
	if ins.SetCC {
		c.State.SetNZCV(result&0x80000000 != 0, result == 0, c.State.C(), c.State.V())
	}
	return nil
}

func (c *CPU) execMultiplyLong(ins Instruction) error {
	rm := c.State.R[ins.Rm]
	rs := c.State.R[ins.Rs]
	var result uint64
	if ins.Signed {
		result = uint64(int64(int32(rm)) * int64(int32(rs)))
	} else {
		result = uint64(rm) * uint64(rs)
	}
	if ins.Accumulate {
		acc := uint64(c.State.R[ins.RdHi])<<32 | uint64(c.State.R[ins.RdLo])
		result += acc
	}
	c.State.R[ins.RdLo] = uint32(result)
	c.State.R[ins.RdHi] = uint32(result >> 32)
	if ins.SetCC {
		c.State.SetNZCV(result&0x8000000000000000 != 0, result == 0, c.State.C(), c.State.V())
	}
	return nil
}

// shiftImmediate applies an immediate shift amount using the same
// shift-by-zero special cases as data-processing operand-2 (spec.md
// §4.4): LSR/ASR #0 mean #32, ROR #0 means RRX, LSL #0 passes through.
func shiftImmediate(kind ShiftKind, value, amount uint32, carryIn bool) uint32 {
	switch kind {
	case ShiftLSR, ShiftASR:
		if amount == 0 {
			amount = 32
		}
	}
	result, _ := Shift(kind, value, amount, carryIn)
	return result
}

func (c *CPU) transferOffset(ins Instruction, fetchAddr uint32) uint32 {
	if ins.OffsetIsReg {
		v := c.readReg(ins.OffsetReg, fetchAddr)
		return shiftImmediate(ins.OffsetShift.Shift, v, ins.OffsetShift.ShiftAmount, c.State.C())
	}
	return ins.OffsetImm
}

func (c *CPU) execSingleTransfer(ins Instruction, fetchAddr uint32) error {
	base := c.readReg(ins.Rn, fetchAddr)
	offset := c.transferOffset(ins, fetchAddr)

	addr := base
	if ins.Pre {
		if ins.Up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	var dataAbort error
	if ins.Load {
		if ins.Byte {
			v, err := c.Bus.ReadByte(addr)
			dataAbort = err
			if err == nil {
				c.State.R[ins.Rd] = uint32(v)
			}
		} else {
			v, err := c.Bus.ReadWord(addr &^ 3)
			dataAbort = err
			if err == nil {
				// Unaligned word loads rotate the result per the
				// architectural rule (spec.md §4.4).
				rotate := (addr & 3) * 8
				rotated, _ := Shift(ShiftROR, v, rotate, false)
				c.State.R[ins.Rd] = rotated
			}
		}
	} else {
		v := c.readReg(ins.Rd, fetchAddr)
		if ins.Byte {
			dataAbort = c.Bus.WriteByte(addr, uint8(v))
		} else {
			// Unaligned word stores truncate the low address bits.
			dataAbort = c.Bus.WriteWord(addr&^3, v)
		}
	}
	if dataAbort != nil {
		return c.enterException(ExceptionDataAbort, fetchAddr+8)
	}

	if !ins.Pre {
		if ins.Up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.State.R[ins.Rn] = addr
	} else if ins.WriteBack {
		c.State.R[ins.Rn] = addr
	}
	return nil
}

func (c *CPU) execHalfwordTransfer(ins Instruction, fetchAddr uint32) error {
	base := c.readReg(ins.Rn, fetchAddr)
	var offset uint32
	if ins.OffsetIsReg {
		offset = c.readReg(ins.OffsetReg, fetchAddr)
	} else {
		offset = ins.OffsetImm
	}

	addr := base
	if ins.Pre {
		if ins.Up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	var dataAbort error
	if ins.Load {
		switch {
		case ins.Half && ins.Signed_:
			v, err := c.Bus.ReadHalf(addr)
			dataAbort = err
			if err == nil {
				c.State.R[ins.Rd] = uint32(int32(int16(v)))
			}
		case ins.Half:
			v, err := c.Bus.ReadHalf(addr)
			dataAbort = err
			if err == nil {
				c.State.R[ins.Rd] = uint32(v)
			}
		case ins.Signed_: // signed byte
			v, err := c.Bus.ReadByte(addr)
			dataAbort = err
			if err == nil {
				c.State.R[ins.Rd] = uint32(int32(int8(v)))
			}
		}
	} else if ins.Half {
		dataAbort = c.Bus.WriteHalf(addr, uint16(c.readReg(ins.Rd, fetchAddr)))
	}
	if dataAbort != nil {
		return c.enterException(ExceptionDataAbort, fetchAddr+8)
	}

	if !ins.Pre {
		if ins.Up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.State.R[ins.Rn] = addr
	} else if ins.WriteBack {
		c.State.R[ins.Rn] = addr
	}
	return nil
}

func (c *CPU) execBlockTransfer(ins Instruction, fetchAddr uint32) error {
	base := c.readReg(ins.Rn, fetchAddr)

	var regs []uint8
	for r := uint8(0); r < 16; r++ {
		if ins.RegList&(1<<r) != 0 {
			regs = append(regs, r)
		}
	}

	count := uint32(len(regs))
	var startAddr uint32
	switch {
	case ins.Up && ins.Pre:
		startAddr = base + 4
	case ins.Up && !ins.Pre:
		startAddr = base
	case !ins.Up && ins.Pre:
		startAddr = base - 4*count
	default:
		startAddr = base - 4*count + 4
	}

	addr := startAddr
	for _, r := range regs {
		if ins.Load {
			v, err := c.Bus.ReadWord(addr)
			if err != nil {
				return c.enterException(ExceptionDataAbort, fetchAddr+8)
			}
			if r == 15 && ins.LoadPSR {
				c.State.RestoreCPSRFromSPSR()
			}
			c.State.R[r] = v
		} else {
			v := c.readReg(r, fetchAddr)
			if err := c.Bus.WriteWord(addr, v); err != nil {
				return c.enterException(ExceptionDataAbort, fetchAddr+8)
			}
		}
		addr += 4
	}

	if ins.WriteBack {
		if ins.Up {
			c.State.R[ins.Rn] = base + 4*count
		} else {
			c.State.R[ins.Rn] = base - 4*count
		}
	}
	return nil
}

func (c *CPU) execBranch(ins Instruction, fetchAddr uint32) error {
	target := uint32(int64(fetchAddr) + 8 + int64(ins.BranchOffset))
	if ins.Link {
		c.State.R[14] = fetchAddr + 4
	}
	c.State.SetPC(target)
	return nil
}

func (c *CPU) execBranchExchange(ins Instruction, fetchAddr uint32) error {
	target := c.readReg(ins.Rm, fetchAddr)
	c.State.SetThumb(target&1 != 0)
	c.State.SetPC(target &^ 1)
	return nil
}

func (c *CPU) execPSRTransfer(ins Instruction, fetchAddr uint32) error {
	if !ins.ToPSR {
		var v uint32
		if ins.UsePSR {
			v, _ = c.State.SPSR()
		} else {
			v = c.State.CPSR
		}
		c.State.R[ins.Rd] = v
		return nil
	}

	var operand uint32
	if ins.Op2.IsImmediate {
		operand, _ = RotateRight32(ins.Op2.Imm8, ins.Op2.RotateField, c.State.C())
	} else {
		operand = c.readReg(ins.Op2.Reg, fetchAddr)
	}

	if ins.UsePSR {
		cur, ok := c.State.SPSR()
		if ok {
			c.State.SetSPSR((cur &^ ins.PSRMask) | (operand & ins.PSRMask))
		}
	} else {
		cur := c.State.CPSR
		c.State.SetCPSR((cur &^ ins.PSRMask) | (operand & ins.PSRMask))
	}
	return nil
}

func (c *CPU) execSwap(ins Instruction, fetchAddr uint32) error {
	addr := c.readReg(ins.Rn, fetchAddr)
	if ins.SwapByte {
		old, err := c.Bus.ReadByte(addr)
		if err != nil {
			return c.enterException(ExceptionDataAbort, fetchAddr+8)
		}
		if err := c.Bus.WriteByte(addr, uint8(c.readReg(ins.Rm, fetchAddr))); err != nil {
			return c.enterException(ExceptionDataAbort, fetchAddr+8)
		}
		c.State.R[ins.Rd] = uint32(old)
		return nil
	}
	old, err := c.Bus.ReadWord(addr)
	if err != nil {
		return c.enterException(ExceptionDataAbort, fetchAddr+8)
	}
	if err := c.Bus.WriteWord(addr, c.readReg(ins.Rm, fetchAddr)); err != nil {
		return c.enterException(ExceptionDataAbort, fetchAddr+8)
	}
	c.State.R[ins.Rd] = old
	return nil
}

// enterException delivers exception kind with the given value to save into
// LR of the new mode: saves CPSR to the new mode's SPSR, switches mode
// (banking SP/LR/R8-R12 as needed), sets LR, masks IRQ (and FIQ too for
// Reset/FIQ per spec.md §4.4), clears Thumb, and jumps to the vector.
func (c *CPU) enterException(kind ExceptionKind, lrValue uint32) error {
	info, ok := exceptionTable[kind]
	if !ok {
		return fmt.Errorf("arm: unknown exception kind %d", kind)
	}

	savedCPSR := c.State.CPSR
	c.State.SetMode(info.mode)
	c.State.SetSPSR(savedCPSR)
	c.State.R[14] = lrValue
	c.State.setFlag(FlagI, true)
	if info.maskFIQ {
		c.State.setFlag(FlagF, true)
	}
	c.State.SetThumb(false)
	c.State.SetPC(c.VectorBase + info.vectorOffset)
	return nil
}
