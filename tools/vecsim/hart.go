package vecsim

import (
	"encoding/binary"
	"fmt"
)

// mstatus bits the trap entry and mret update.
const (
	MstatusMIE  = uint64(1) << 3
	MstatusMPIE = uint64(1) << 7
)

// CSR numbers the vector may access.
const (
	csrFcsr    = 0x003
	csrMstatus = 0x300
	csrMtvec   = 0x305
	csrMepc    = 0x341
	csrMcause  = 0x342
	csrMtval   = 0x343
)

// State is the architectural state of a hart outside of memory.
type State struct {
	X    [32]uint64
	F    [32]uint64
	FCSR uint64
	PC   uint64

	MSTATUS uint64
	MEPC    uint64
	MCAUSE  uint64
	MTVAL   uint64
	MTVEC   uint64
}

// Hart is a single RISC-V hart with a flat little-endian memory window.
type Hart struct {
	State

	mem     []byte
	memBase uint64

	// lowWater and highWater bound the addresses written since the last
	// ResetWatermarks call; highWater is exclusive.
	lowWater  uint64
	highWater uint64

	// frames records the frame address of every dispatch call in order.
	frames []uint64

	depth int
}

// NewHart returns a hart whose memory covers [base, base+size).
func NewHart(base, size uint64) *Hart {
	h := &Hart{
		mem:     make([]byte, size),
		memBase: base,
	}
	h.ResetWatermarks()
	return h
}

// Snapshot returns a copy of the register state.
func (h *Hart) Snapshot() State {
	return h.State
}

// Frames returns the frame addresses passed to the dispatcher, outermost
// trap first.
func (h *Hart) Frames() []uint64 {
	return append([]uint64(nil), h.frames...)
}

// Written returns the range of addresses stored to since the last
// ResetWatermarks. ok is false if nothing was written.
func (h *Hart) Written() (lo, hi uint64, ok bool) {
	return h.lowWater, h.highWater, h.highWater > h.lowWater
}

// ResetWatermarks forgets previous stores and recorded frames.
func (h *Hart) ResetWatermarks() {
	h.lowWater = ^uint64(0)
	h.highWater = 0
	h.frames = h.frames[:0]
}

// Load64 reads the doubleword at addr.
func (h *Hart) Load64(addr uint64) (uint64, error) {
	off, err := h.offset(addr)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(h.mem[off:]), nil
}

// Store64 writes v to the doubleword at addr.
func (h *Hart) Store64(addr, v uint64) error {
	off, err := h.offset(addr)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint64(h.mem[off:], v)
	if addr < h.lowWater {
		h.lowWater = addr
	}
	if addr+8 > h.highWater {
		h.highWater = addr + 8
	}
	return nil
}

func (h *Hart) offset(addr uint64) (uint64, error) {
	switch {
	case addr%8 != 0:
		return 0, fmt.Errorf("misaligned doubleword access at %#x", addr)
	case addr < h.memBase || addr-h.memBase+8 > uint64(len(h.mem)):
		return 0, fmt.Errorf("access at %#x outside of memory [%#x, %#x)", addr, h.memBase, h.memBase+uint64(len(h.mem)))
	}
	return addr - h.memBase, nil
}

func (h *Hart) csr(num uint32) (*uint64, error) {
	switch num {
	case csrFcsr:
		return &h.FCSR, nil
	case csrMstatus:
		return &h.MSTATUS, nil
	case csrMtvec:
		return &h.MTVEC, nil
	case csrMepc:
		return &h.MEPC, nil
	case csrMcause:
		return &h.MCAUSE, nil
	case csrMtval:
		return &h.MTVAL, nil
	}
	return nil, fmt.Errorf("unsupported CSR %#x", num)
}

// enterTrap performs the hardware side of taking a trap.
func (h *Hart) enterTrap(cause uint64) {
	h.MEPC = h.PC
	h.MCAUSE = cause

	if h.MSTATUS&MstatusMIE != 0 {
		h.MSTATUS |= MstatusMPIE
	} else {
		h.MSTATUS &^= MstatusMPIE
	}
	h.MSTATUS &^= MstatusMIE
}

// mret returns from a trap.
func (h *Hart) mret() {
	if h.MSTATUS&MstatusMPIE != 0 {
		h.MSTATUS |= MstatusMIE
	} else {
		h.MSTATUS &^= MstatusMIE
	}
	h.MSTATUS |= MstatusMPIE
	h.PC = h.MEPC
}
