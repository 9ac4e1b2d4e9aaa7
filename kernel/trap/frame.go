// Package trap implements trap entry and dispatch for a machine-mode RISC-V
// hart. The assembly vector saves the interrupted context into a Frame on the
// current stack, hands the frame to dispatch, and restores whatever the frame
// holds when dispatch returns.
package trap

import (
	"io"
	"unsafe"

	"bl602rt/kernel/kfmt"
)

const (
	// WordSize is the size of a saved register slot in bytes.
	WordSize = unsafe.Sizeof(uintptr(0))

	// StackAlign is the stack pointer alignment required by the RISC-V
	// calling convention.
	StackAlign = 16

	// FrameArgs is the outgoing argument area the vector reserves below the
	// frame. A Go assembly CALL passes arguments at 8(SP) and keeps 0(SP)
	// for the return address of the callee's own frame.
	FrameArgs = 16

	// FrameSize is the size of the saved context in bytes.
	FrameSize = unsafe.Sizeof(Frame{})

	// StackUsage is the number of bytes one trap episode moves the stack
	// pointer down before calling dispatch.
	StackUsage = FrameArgs + FrameSize
)

// The vector keeps the stack aligned; a frame whose size is not a multiple of
// StackAlign fails to compile here.
const (
	_ uintptr = -(FrameSize % StackAlign)
	_ uintptr = -(FrameArgs % StackAlign)
)

// Registers holds the integer context of an interrupted program. Field order
// defines the frame layout and must match the offsets in frame_riscv64.h.
//
// Go code has no callee-saved general registers, so every register except
// x0 is stored. MEPC and MCAUSE are copied from the CSRs on entry and written
// back on exit; a handler redirects execution by editing them.
type Registers struct {
	RA uintptr

	T0 uintptr
	T1 uintptr
	T2 uintptr
	T3 uintptr
	T4 uintptr
	T5 uintptr
	T6 uintptr

	A0 uintptr
	A1 uintptr
	A2 uintptr
	A3 uintptr
	A4 uintptr
	A5 uintptr
	A6 uintptr
	A7 uintptr

	S0  uintptr
	S1  uintptr
	S2  uintptr
	S3  uintptr
	S4  uintptr
	S5  uintptr
	S6  uintptr
	S7  uintptr
	S8  uintptr
	S9  uintptr
	S10 uintptr
	S11 uintptr

	GP uintptr
	TP uintptr

	// SP is the stack pointer of the interrupted program. The vector
	// restores it last, so a handler that switches stacks only needs to
	// update this slot.
	SP uintptr

	MEPC   uintptr
	MCAUSE uintptr

	_ uintptr
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RA  = %16x SP  = %16x\n", r.RA, r.SP)
	kfmt.Fprintf(w, "GP  = %16x TP  = %16x\n", r.GP, r.TP)
	kfmt.Fprintf(w, "T0  = %16x T1  = %16x T2  = %16x\n", r.T0, r.T1, r.T2)
	kfmt.Fprintf(w, "T3  = %16x T4  = %16x T5  = %16x\n", r.T3, r.T4, r.T5)
	kfmt.Fprintf(w, "T6  = %16x\n", r.T6)
	kfmt.Fprintf(w, "A0  = %16x A1  = %16x A2  = %16x\n", r.A0, r.A1, r.A2)
	kfmt.Fprintf(w, "A3  = %16x A4  = %16x A5  = %16x\n", r.A3, r.A4, r.A5)
	kfmt.Fprintf(w, "A6  = %16x A7  = %16x\n", r.A6, r.A7)
	kfmt.Fprintf(w, "S0  = %16x S1  = %16x S2  = %16x\n", r.S0, r.S1, r.S2)
	kfmt.Fprintf(w, "S3  = %16x S4  = %16x S5  = %16x\n", r.S3, r.S4, r.S5)
	kfmt.Fprintf(w, "S6  = %16x S7  = %16x S8  = %16x\n", r.S6, r.S7, r.S8)
	kfmt.Fprintf(w, "S9  = %16x S10 = %16x S11 = %16x\n", r.S9, r.S10, r.S11)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "MEPC   = %16x\n", r.MEPC)
	kfmt.Fprintf(w, "MCAUSE = %16x\n", r.MCAUSE)
}

// Base returns the address of the frame. The vector passes this value to
// dispatch.
func (f *Frame) Base() uintptr {
	return uintptr(unsafe.Pointer(f))
}
