package trap

import (
	"bl602rt/kernel"
	"bl602rt/kernel/clic"
	"bl602rt/kernel/cpu"
)

// VectorMode is the mode field held in the two low bits of mtvec.
type VectorMode uintptr

const (
	// ModeDirect sends every trap to the vector base.
	ModeDirect VectorMode = 0

	// ModeCLICDirect sends every trap to the vector base and lets the CLIC
	// arbitrate interrupt levels. This is the mode the BL602 boots into.
	ModeCLICDirect VectorMode = 2
)

// VectorAlign is the alignment of trapVector in bytes. CLIC modes ignore the
// six low bits of mtvec, so the vector base must be 64-byte aligned.
const VectorAlign = 64

// Mode is the mtvec mode Init selects.
const Mode = ModeCLICDirect

var (
	installed bool

	// Mocked by tests.
	vectorAddrFn        = vectorAddr
	writeMtvecFn        = cpu.WriteMtvec
	enableInterruptsFn  = cpu.EnableInterrupts
	disableInterruptsFn = cpu.DisableInterrupts
	enableFPUFn         = cpu.EnableFPU
	resetCLICFn         = clic.Reset

	errAlreadyInstalled = &kernel.Error{Module: "trap", Message: "trap vector already installed"}
)

// Init installs trapVector as the machine trap vector and enables machine
// interrupts. Init must run exactly once during bring-up, after handlers
// needed at boot are registered; later calls return an error and leave the
// hart untouched.
func Init() *kernel.Error {
	if installed {
		return errAlreadyInstalled
	}

	disableInterruptsFn()

	if Variant == "fpu" {
		enableFPUFn()
	}

	writeMtvecFn(vectorAddrFn() | uintptr(Mode))
	resetCLICFn()
	installed = true

	enableInterruptsFn()
	return nil
}
