// Package cpu exposes the machine-mode CSR operations the trap core needs.
// On riscv64 every function is implemented in assembly; other architectures
// get a software model of the relevant CSRs so that the kernel packages can
// be exercised by host tests.
package cpu

// MstatusMIE is the global machine interrupt-enable bit in mstatus.
const MstatusMIE = uintptr(1 << 3)

// MstatusMPIE holds the value MIE had before the most recent trap.
const MstatusMPIE = uintptr(1 << 7)

// MstatusFSInitial marks the floating-point unit as enabled with clean state.
const MstatusFSInitial = uintptr(1 << 13)
