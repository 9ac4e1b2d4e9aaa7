package trap

import "unsafe"

// Cause is the value of mcause for a trap.
type Cause uintptr

// wordBits is the register width in bits.
const wordBits = 8 * unsafe.Sizeof(uintptr(0))

// causeInterrupt is the mcause bit that separates interrupts from
// exceptions.
const causeInterrupt = Cause(1) << (wordBits - 1)

// codeMask selects the exception code. In CLIC mode the code field is 12
// bits wide and the bits above it carry the previous interrupt level and
// privilege, which the vector restores untouched.
const codeMask = 0xfff

// Synchronous exception codes.
const (
	InstructionMisaligned = uintptr(0)
	InstructionFault      = uintptr(1)
	IllegalInstruction    = uintptr(2)
	Breakpoint            = uintptr(3)
	LoadMisaligned        = uintptr(4)
	LoadFault             = uintptr(5)
	StoreMisaligned       = uintptr(6)
	StoreFault            = uintptr(7)
	UserEcall             = uintptr(8)
	SupervisorEcall       = uintptr(9)
	MachineEcall          = uintptr(11)
	InstructionPageFault  = uintptr(12)
	LoadPageFault         = uintptr(13)
	StorePageFault        = uintptr(15)

	// NumExceptions is the size of the exception handler table.
	NumExceptions = 16
)

// Core-local interrupt codes.
const (
	MachineSoftware = uintptr(3)
	MachineTimer    = uintptr(7)
	MachineExternal = uintptr(11)
)

var exceptionNames = [NumExceptions]string{
	InstructionMisaligned: "instruction address misaligned",
	InstructionFault:      "instruction access fault",
	IllegalInstruction:    "illegal instruction",
	Breakpoint:            "breakpoint",
	LoadMisaligned:        "load address misaligned",
	LoadFault:             "load access fault",
	StoreMisaligned:       "store address misaligned",
	StoreFault:            "store access fault",
	UserEcall:             "environment call from U-mode",
	SupervisorEcall:       "environment call from S-mode",
	10:                    "reserved",
	MachineEcall:          "environment call from M-mode",
	InstructionPageFault:  "instruction page fault",
	LoadPageFault:         "load page fault",
	14:                    "reserved",
	StorePageFault:        "store page fault",
}

// IsInterrupt reports whether the trap was asynchronous.
func (c Cause) IsInterrupt() bool {
	return c&causeInterrupt != 0
}

// Code returns the exception code, or the interrupt line for interrupts.
func (c Cause) Code() uintptr {
	return uintptr(c) & codeMask
}

// String returns a short description of the cause.
func (c Cause) String() string {
	code := c.Code()
	if !c.IsInterrupt() {
		if code < NumExceptions {
			return exceptionNames[code]
		}
		return "unknown exception"
	}

	switch code {
	case MachineSoftware:
		return "machine software interrupt"
	case MachineTimer:
		return "machine timer interrupt"
	case MachineExternal:
		return "machine external interrupt"
	}

	if code >= clicBase {
		return "CLIC interrupt"
	}
	return "unknown interrupt"
}
