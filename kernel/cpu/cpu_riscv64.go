package cpu

// EnableInterrupts sets mstatus.MIE.
func EnableInterrupts()

// DisableInterrupts clears mstatus.MIE.
func DisableInterrupts()

// SaveAndDisable clears mstatus.MIE and returns the value mstatus had before
// the update. Pass the result to Restore to undo the change.
func SaveAndDisable() uintptr

// Restore sets mstatus.MIE if it was set in a state returned by
// SaveAndDisable. Restore never clears MIE.
func Restore(state uintptr)

// Halt parks the hart in a wfi loop. Halt never returns.
func Halt()

// ReadMtvec returns the current trap-vector base configuration.
func ReadMtvec() uintptr

// WriteMtvec sets the trap-vector base configuration.
func WriteMtvec(v uintptr)

// ReadMtval returns the trap value (faulting address or instruction bits)
// recorded by the hardware for the most recent trap.
func ReadMtval() uintptr

// EnableFPU sets mstatus.FS to Initial so floating-point instructions,
// including the ones in the trap vector of fpu builds, do not trap.
func EnableFPU()

// Ecall raises an environment-call exception from the current privilege
// level. The handler is expected to advance mepc past the instruction.
func Ecall()
