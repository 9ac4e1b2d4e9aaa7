package trap

// trapVector is the assembly entry point installed in mtvec. It is never
// called from Go.
func trapVector()

// vectorAddr returns the address of the ABI0 trapVector symbol. Taking the
// address of trapVector from Go would yield its ABIInternal wrapper instead.
func vectorAddr() uintptr

// linkerFuncAlign is the minimum function alignment the Go linker applies on
// riscv64. PCALIGN in the vector raises the alignment of trapVector itself.
const linkerFuncAlign = 8

// pcAlignMax is the largest alignment PCALIGN accepts.
const pcAlignMax = 2048

// The vector requests VectorAlign through PCALIGN, which only accepts powers
// of two between the linker's function alignment and pcAlignMax.
const (
	_ uint = -(VectorAlign & (VectorAlign - 1))
	_ uint = pcAlignMax - VectorAlign
	_ uint = VectorAlign - linkerFuncAlign
)
