//go:build !riscv64

package cpu

// csrs models the machine CSRs touched by this package on hosts that are not
// riscv64. The model is not safe for concurrent use; neither is a hart.
var csrs struct {
	mstatus uintptr
	mtvec   uintptr
	mtval   uintptr
}

// EnableInterrupts sets mstatus.MIE.
func EnableInterrupts() { csrs.mstatus |= MstatusMIE }

// DisableInterrupts clears mstatus.MIE.
func DisableInterrupts() { csrs.mstatus &^= MstatusMIE }

// SaveAndDisable clears mstatus.MIE and returns the value mstatus had before
// the update.
func SaveAndDisable() uintptr {
	state := csrs.mstatus
	csrs.mstatus &^= MstatusMIE
	return state
}

// Restore sets mstatus.MIE if it was set in state.
func Restore(state uintptr) { csrs.mstatus |= state & MstatusMIE }

// Halt blocks the calling goroutine forever.
func Halt() { select {} }

// ReadMtvec returns the modelled mtvec value.
func ReadMtvec() uintptr { return csrs.mtvec }

// WriteMtvec sets the modelled mtvec value.
func WriteMtvec(v uintptr) { csrs.mtvec = v }

// ReadMtval returns the modelled mtval value.
func ReadMtval() uintptr { return csrs.mtval }

// EnableFPU sets the modelled mstatus.FS field to Initial.
func EnableFPU() { csrs.mstatus |= MstatusFSInitial }

// Ecall does nothing on the host model; there is no trap vector to enter.
func Ecall() {}
