// Package arm implements an ARM7TDMI instruction-level emulator: register
// file and banking, a barrel shifter, an instruction decoder, an executor,
// and the seven architectural exceptions, per spec.md §3/§4.4.
//
// The register file keeps the teacher's array-of-banks representation
// (internal/cpu.CPUState's flat register struct, generalized here to an
// array with an explicit bank-swap step on mode transition) rather than
// computing a register's storage location on every access — endorsed by
// spec.md's own design notes as the most readable expression of the
// architectural banking rule.
package arm

import "fmt"

// Mode is the five-bit CPSR mode field.
type Mode uint32

const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "usr"
	case ModeFIQ:
		return "fiq"
	case ModeIRQ:
		return "irq"
	case ModeSupervisor:
		return "svc"
	case ModeAbort:
		return "abt"
	case ModeUndefined:
		return "und"
	case ModeSystem:
		return "sys"
	default:
		return fmt.Sprintf("mode(0x%02X)", uint32(m))
	}
}

// CPSR/SPSR bit layout.
const (
	FlagN = 1 << 31
	FlagZ = 1 << 30
	FlagC = 1 << 29
	FlagV = 1 << 28
	FlagI = 1 << 7 // IRQ disable
	FlagF = 1 << 6 // FIQ disable
	FlagT = 1 << 5 // Thumb state
	modeMask = 0x1F
)

// bank indexes the distinct SP/LR register banks. System shares User's bank.
type bank int

const (
	bankUser bank = iota
	bankFIQ
	bankIRQ
	bankSVC
	bankABT
	bankUND
	bankCount
)

func bankFor(m Mode) bank {
	switch m {
	case ModeFIQ:
		return bankFIQ
	case ModeIRQ:
		return bankIRQ
	case ModeSupervisor:
		return bankSVC
	case ModeAbort:
		return bankABT
	case ModeUndefined:
		return bankUND
	default:
		return bankUser
	}
}

// hasSPSR reports whether mode m has its own saved program status register.
// User and System modes do not.
func hasSPSR(m Mode) bool {
	return m != ModeUser && m != ModeSystem
}

// State is the complete architectural register file: R0-R15 as currently
// visible, the current program status word, the banked SP/LR per
// privileged mode, the banked R8-R12 for FIQ, and one SPSR per mode that
// has one.
type State struct {
	R [16]uint32

	CPSR uint32

	bankedSP [bankCount]uint32
	bankedLR [bankCount]uint32
	fiqR8_12 [5]uint32 // R8-R12 while in FIQ mode
	usrR8_12 [5]uint32 // R8-R12 for every other mode

	spsr [bankCount]uint32 // indexed same as bankedSP/LR; bankUser unused

	Halted     bool
	Breakpoint *uint32 // optional PC value that halts fetch when reached
}

// PC is R15.
func (s *State) PC() uint32 { return s.R[15] }

// SetPC sets R15 directly (callers needing the +8 pipeline bias add it
// themselves; PC here is the architectural value).
func (s *State) SetPC(v uint32) { s.R[15] = v }

// CurrentMode returns the mode field of CPSR.
func (s *State) CurrentMode() Mode { return Mode(s.CPSR & modeMask) }

// NewState returns a State reset to Supervisor mode with IRQ/FIQ masked,
// matching the ARM7TDMI reset behaviour (CPSR = 0xD3: N=Z=C=V=0, I=F=1,
// T=0, mode=SVC).
func NewState() *State {
	s := &State{}
	s.CPSR = uint32(ModeSupervisor) | FlagI | FlagF
	return s
}

// SetMode transitions the visible register set to newMode, swapping the
// outgoing mode's SP/LR (and R8-R12 if FIQ is involved on either side) into
// its bank and loading the incoming mode's bank into the visible
// registers. CPSR's mode field is updated to newMode; flags are untouched
// here (exception delivery and MSR are responsible for the rest of CPSR).
func (s *State) SetMode(newMode Mode) {
	oldMode := s.CurrentMode()
	if newMode == oldMode {
		return
	}

	oldBank := bankFor(oldMode)
	newBank := bankFor(newMode)

	s.bankedSP[oldBank] = s.R[13]
	s.bankedLR[oldBank] = s.R[14]

	if oldMode == ModeFIQ {
		copy(s.fiqR8_12[:], s.R[8:13])
	} else if newMode == ModeFIQ {
		copy(s.usrR8_12[:], s.R[8:13])
	}

	if newMode == ModeFIQ {
		copy(s.R[8:13], s.fiqR8_12[:])
	} else if oldMode == ModeFIQ {
		copy(s.R[8:13], s.usrR8_12[:])
	}

	s.R[13] = s.bankedSP[newBank]
	s.R[14] = s.bankedLR[newBank]

	s.CPSR = (s.CPSR &^ modeMask) | uint32(newMode)
}

// SPSR returns the saved program status register for the current mode, or
// (0, false) in User/System mode where none exists.
func (s *State) SPSR() (uint32, bool) {
	m := s.CurrentMode()
	if !hasSPSR(m) {
		return 0, false
	}
	return s.spsr[bankFor(m)], true
}

// SetSPSR writes the saved program status register for the current mode.
// A no-op in User/System mode.
func (s *State) SetSPSR(v uint32) {
	m := s.CurrentMode()
	if !hasSPSR(m) {
		return
	}
	s.spsr[bankFor(m)] = v
}

// RestoreCPSRFromSPSR implements the exception-return idiom: the S-bit
// data-processing instruction with R15 as destination restores CPSR
// (hence the visible register bank) from the current mode's SPSR.
func (s *State) RestoreCPSRFromSPSR() {
	saved, ok := s.SPSR()
	if !ok {
		return
	}
	s.SetCPSR(saved)
}

// SetCPSR writes the whole CPSR, performing the bank swap implied by any
// mode-field change.
func (s *State) SetCPSR(v uint32) {
	newMode := Mode(v & modeMask)
	if newMode != s.CurrentMode() {
		s.SetMode(newMode)
	}
	s.CPSR = (s.CPSR & modeMask) | (v &^ modeMask) | uint32(newMode)
}

func (s *State) flag(mask uint32) bool { return s.CPSR&mask != 0 }

func (s *State) setFlag(mask uint32, v bool) {
	if v {
		s.CPSR |= mask
	} else {
		s.CPSR &^= mask
	}
}

func (s *State) N() bool { return s.flag(FlagN) }
func (s *State) Z() bool { return s.flag(FlagZ) }
func (s *State) C() bool { return s.flag(FlagC) }
func (s *State) V() bool { return s.flag(FlagV) }

func (s *State) SetNZCV(n, z, c, v bool) {
	s.setFlag(FlagN, n)
	s.setFlag(FlagZ, z)
	s.setFlag(FlagC, c)
	s.setFlag(FlagV, v)
}

func (s *State) Thumb() bool      { return s.flag(FlagT) }
func (s *State) SetThumb(v bool)  { s.setFlag(FlagT, v) }
func (s *State) IRQDisabled() bool { return s.flag(FlagI) }
func (s *State) FIQDisabled() bool { return s.flag(FlagF) }
