package arm

// ShiftKind is the two-bit shift-type field shared by data-processing
// operand-2 and memory-transfer index registers.
type ShiftKind uint8

const (
	ShiftLSL ShiftKind = iota
	ShiftLSR
	ShiftASR
	ShiftROR
)

// Shift applies kind to value by amount, returning the shifted result and
// the carry-out, per spec.md §4.4's barrel-shifter special cases:
//
//   - LSL #0 passes the value through unchanged; carry-out is the
//     unaffected current carry flag (carryIn is returned as is).
//   - LSR #0 and ASR #0 are architecturally encoded as LSR/ASR #32 (a
//     register-specified shift of literal 0 behaves as 0, not 32). Shift
//     itself treats amount 0 as a pass-through for LSR/ASR; the
//     immediate-shift callers in exec.go (evalOperand2, shiftImmediate)
//     map #0 to 32 before calling it.
//   - ROR #0 means RRX: a 33-bit rotate right through the carry flag.
func Shift(kind ShiftKind, value, amount uint32, carryIn bool) (result uint32, carryOut bool) {
	switch kind {
	case ShiftLSL:
		return shiftLSL(value, amount, carryIn)
	case ShiftLSR:
		return shiftLSR(value, amount, carryIn)
	case ShiftASR:
		return shiftASR(value, amount, carryIn)
	case ShiftROR:
		return shiftROR(value, amount, carryIn)
	}
	return value, carryIn
}

func shiftLSL(value, amount uint32, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := value&(1<<(32-amount)) != 0
		return value << amount, carryOut
	case amount == 32:
		return 0, value&1 != 0
	default:
		return 0, false
	}
}

func shiftLSR(value, amount uint32, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := value&(1<<(amount-1)) != 0
		return value >> amount, carryOut
	case amount == 32:
		return 0, value&(1<<31) != 0
	default:
		return 0, false
	}
}

func shiftASR(value, amount uint32, carryIn bool) (uint32, bool) {
	sv := int32(value)
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := value&(1<<(amount-1)) != 0
		return uint32(sv >> amount), carryOut
	default:
		// amount >= 32: result is all sign bits.
		if sv < 0 {
			return 0xFFFFFFFF, true
		}
		return 0, false
	}
}

func shiftROR(value, amount uint32, carryIn bool) (uint32, bool) {
	if amount == 0 {
		// RRX: 33-bit rotate right through carry.
		carryOut := value&1 != 0
		result := value >> 1
		if carryIn {
			result |= 1 << 31
		}
		return result, carryOut
	}
	amount %= 32
	if amount == 0 {
		return value, value&(1<<31) != 0
	}
	result := (value >> amount) | (value << (32 - amount))
	carryOut := value&(1<<(amount-1)) != 0
	return result, carryOut
}

// RotateRight32 applies the immediate-operand rotate used by data-
// processing's 8-bit-immediate-with-4-bit-rotate-count encoding: the
// rotate count field is doubled before use, and amount 0 leaves carry
// unaffected.
func RotateRight32(imm8 uint32, rotateField uint32, carryIn bool) (uint32, bool) {
	amount := (rotateField * 2) % 32
	if amount == 0 {
		return imm8, carryIn
	}
	result := (imm8 >> amount) | (imm8 << (32 - amount))
	carryOut := result&(1<<31) != 0
	return result, carryOut
}
