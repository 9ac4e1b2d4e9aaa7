//go:build !fpu

package trap

import "io"

// Variant names the register set saved by this build.
const Variant = "int"

// Frame is the context saved by the integer-only vector.
type Frame struct {
	Registers
}

// DumpTo outputs the saved context to w.
func (f *Frame) DumpTo(w io.Writer) {
	f.Registers.DumpTo(w)
}
