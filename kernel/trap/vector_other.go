//go:build !riscv64

package trap

// vectorAddr stands in for the assembly helper on hosts that cannot run the
// vector. The value only needs to satisfy VectorAlign.
func vectorAddr() uintptr {
	return 0x23000000
}
