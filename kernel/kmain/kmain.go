package kmain

import (
	"bl602rt/kernel"
	"bl602rt/kernel/cpu"
	"bl602rt/kernel/kfmt"
	"bl602rt/kernel/trap"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errSelfTest      = &kernel.Error{Module: "kmain", Message: "ecall did not return through the trap vector"}

	// Mocked by tests.
	trapInitFn = trap.Init
	ecallFn    = cpu.Ecall
	haltFn     = cpu.Halt
	panicFn    = kfmt.Panic

	ecallSeen bool
)

// Kmain is invoked by the reset code once a stack and a minimal g0 are in
// place. It installs the machine trap vector, checks that a synchronous trap
// makes the round trip through the vector and then idles the hart; all
// further work arrives as interrupts.
//
// Kmain is not expected to return. If it does, the reset code will halt the
// CPU.
//
//go:noinline
func Kmain() {
	kfmt.Printf("bl602rt: %s trap frame, %d bytes\n", trap.Variant, trap.FrameSize)

	var err *kernel.Error
	if err = trap.HandleException(trap.MachineEcall, handleEcall); err != nil {
		panicFn(err)
		return
	} else if err = trapInitFn(); err != nil {
		panicFn(err)
		return
	}

	ecallSeen = false
	ecallFn()
	if !ecallSeen {
		panicFn(errSelfTest)
		return
	}
	kfmt.Printf("bl602rt: trap vector installed\n")

	haltFn()

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// handleEcall resumes execution after the ecall instruction.
func handleEcall(frame *trap.Frame) {
	ecallSeen = true
	trap.SkipInstruction(frame)
}
