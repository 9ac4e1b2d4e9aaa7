//go:build fpu

package trap

import (
	"io"

	"bl602rt/kernel/kfmt"
)

// Variant names the register set saved by this build.
const Variant = "fpu"

// FloatRegisters holds the floating-point context. The vector saves all of
// f0..f31 because Go code treats every floating-point register as scratch.
type FloatRegisters struct {
	F    [32]uint64
	FCSR uintptr

	_ uintptr
}

// DumpTo outputs the floating-point registers to w.
func (r *FloatRegisters) DumpTo(w io.Writer) {
	for i := 0; i < len(r.F); i += 4 {
		kfmt.Fprintf(w, "F%2d = %16x %16x %16x %16x\n", i, r.F[i], r.F[i+1], r.F[i+2], r.F[i+3])
	}
	kfmt.Fprintf(w, "FCSR = %x\n", r.FCSR)
}

// Frame is the context saved by the floating-point vector.
type Frame struct {
	Registers
	Float FloatRegisters
}

// DumpTo outputs the saved context to w.
func (f *Frame) DumpTo(w io.Writer) {
	f.Registers.DumpTo(w)
	kfmt.Fprintf(w, "\n")
	f.Float.DumpTo(w)
}
