package trap

import (
	"unsafe"

	"bl602rt/kernel"
	"bl602rt/kernel/clic"
	"bl602rt/kernel/cpu"
	"bl602rt/kernel/kfmt"
	"bl602rt/kernel/sync"
)

// Handler processes a trap. Changes a handler makes to the frame are loaded
// into the hart when the vector returns.
type Handler func(*Frame)

// clicBase is the first mcause code owned by a CLIC peripheral line.
const clicBase = clic.IRQBase

var (
	exceptionHandlers [NumExceptions]Handler

	// interruptHandlers is indexed by interrupt code: core-local codes
	// below clicBase followed by CLIC lines.
	interruptHandlers [clic.NumLines]Handler

	defaultHandler Handler = unhandledTrap

	// Mocked by tests.
	panicFn     = kfmt.Panic
	readMtvalFn = cpu.ReadMtval
	fetchHalfFn = fetchHalf

	trapPrefix = []byte("[trap] ")

	errUnhandledTrap = &kernel.Error{Module: "trap", Message: "unhandled trap"}
	errBadException  = &kernel.Error{Module: "trap", Message: "exception code out of range"}
	errBadInterrupt  = &kernel.Error{Module: "trap", Message: "interrupt code out of range"}
	errNilDefault    = &kernel.Error{Module: "trap", Message: "default handler must not be nil"}
)

// dispatch is called by trapVector with the frame it just saved. It must
// return for the vector to restore the context.
//
//go:nosplit
func dispatch(frame *Frame) {
	cause := Cause(frame.MCAUSE)
	code := cause.Code()

	var handler Handler
	switch {
	case cause.IsInterrupt():
		if code < uintptr(len(interruptHandlers)) {
			handler = interruptHandlers[code]
		}
	case code < NumExceptions:
		handler = exceptionHandlers[code]
	}

	if handler == nil {
		handler = defaultHandler
	}
	handler(frame)
}

// HandleException installs handler for the synchronous exception code. A nil
// handler restores the default handler.
func HandleException(code uintptr, handler Handler) *kernel.Error {
	if code >= NumExceptions {
		return errBadException
	}

	sync.Do(func() { exceptionHandlers[code] = handler })
	return nil
}

// HandleInterrupt installs handler for irq. Core-local interrupts use their
// mcause code (MachineTimer, MachineSoftware and MachineExternal) and CLIC
// lines use their clic.IRQ value. A nil handler restores the default handler.
func HandleInterrupt(irq clic.IRQ, handler Handler) *kernel.Error {
	if irq >= clic.NumLines {
		return errBadInterrupt
	}

	sync.Do(func() { interruptHandlers[irq] = handler })
	return nil
}

// SetDefaultHandler installs the handler invoked for traps without a
// registered handler.
func SetDefaultHandler(handler Handler) *kernel.Error {
	if handler == nil {
		return errNilDefault
	}

	sync.Do(func() { defaultHandler = handler })
	return nil
}

// SkipInstruction advances MEPC past the instruction that raised the
// exception, so that the vector resumes at the next one.
func SkipInstruction(frame *Frame) {
	// The two low bits are 0b11 for 32-bit encodings; anything else is a
	// 16-bit compressed instruction.
	if fetchHalfFn(frame.MEPC)&0x3 == 0x3 {
		frame.MEPC += 4
	} else {
		frame.MEPC += 2
	}
}

func fetchHalf(pc uintptr) uint16 {
	return *(*uint16)(unsafe.Pointer(pc))
}

// unhandledTrap reports the trap and halts. Resuming would re-enter the trap
// or run on a corrupted context.
func unhandledTrap(frame *Frame) {
	cause := Cause(frame.MCAUSE)

	w := kfmt.PrefixWriter{Sink: kfmt.GetOutputSink(), Prefix: trapPrefix}
	kfmt.Fprintf(&w, "\nunhandled %s (mcause = %x, mtval = %x)\n", cause.String(), frame.MCAUSE, readMtvalFn())
	frame.DumpTo(&w)

	panicFn(errUnhandledTrap)
}
