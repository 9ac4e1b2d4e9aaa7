// Package clic drives the per-line enable and pending registers of the BL602
// core-local interrupt controller. Each external interrupt line owns one
// byte in the INTIE (enable) bank and one byte in the INTIP (pending) bank.
package clic

import (
	"unsafe"

	"bl602rt/kernel"
	"bl602rt/kernel/mem"
)

// IRQ identifies a CLIC interrupt line. Line numbers are offset by IRQBase
// from the core-local interrupt codes, matching the value the hardware
// reports in mcause.
type IRQ uint8

// IRQBase is the first line number used by external (peripheral) sources.
// Lines below it are the standard RISC-V core-local interrupts.
const IRQBase = 16

// Peripheral interrupt lines wired on the BL602.
const (
	TimerCh0 = IRQ(IRQBase + 36)
	TimerCh1 = IRQ(IRQBase + 37)
	Watchdog = IRQ(IRQBase + 38)
	GPIO     = IRQ(IRQBase + 44)
)

// NumLines is the number of interrupt lines the controller exposes.
const NumLines = 96

const (
	hart0Base   = uintptr(0x02800000)
	intipOffset = uintptr(0x000)
	intieOffset = uintptr(0x400)
)

var (
	// base is the address of the hart 0 register block. Tests point it at a
	// buffer.
	base = hart0Base

	errNoSuchLine = &kernel.Error{Module: "clic", Message: "interrupt line out of range"}
)

// Source returns the interrupt code mcause reports when this line fires.
func (irq IRQ) Source() uintptr {
	return uintptr(irq)
}

// String returns the name of known peripheral lines.
func (irq IRQ) String() string {
	switch irq {
	case TimerCh0:
		return "TimerCh0"
	case TimerCh1:
		return "TimerCh1"
	case Watchdog:
		return "Watchdog"
	case GPIO:
		return "GPIO"
	default:
		return "IRQ"
	}
}

// Enable unmasks irq at the controller.
func Enable(irq IRQ) *kernel.Error {
	return writeReg(intieOffset, irq, 1)
}

// Disable masks irq at the controller.
func Disable(irq IRQ) *kernel.Error {
	return writeReg(intieOffset, irq, 0)
}

// Clear drops a pending request on irq. Most peripherals also latch the
// condition in their own status register, which must be cleared separately.
func Clear(irq IRQ) *kernel.Error {
	return writeReg(intipOffset, irq, 0)
}

// IsEnabled reports whether irq is unmasked.
func IsEnabled(irq IRQ) bool {
	return irq < NumLines && readReg(intieOffset, irq) != 0
}

// IsPending reports whether irq has a pending request.
func IsPending(irq IRQ) bool {
	return irq < NumLines && readReg(intipOffset, irq) != 0
}

// Reset masks every line and drops every pending request.
func Reset() {
	mem.Memset(base+intieOffset, 0, NumLines)
	mem.Memset(base+intipOffset, 0, NumLines)
}

func writeReg(bank uintptr, irq IRQ, v uint8) *kernel.Error {
	if irq >= NumLines {
		return errNoSuchLine
	}

	*reg(bank, irq) = v
	return nil
}

func readReg(bank uintptr, irq IRQ) uint8 {
	return *reg(bank, irq)
}

func reg(bank uintptr, irq IRQ) *uint8 {
	return (*uint8)(unsafe.Pointer(base + bank + uintptr(irq)))
}
