package vecsim

import (
	"fmt"
	"sort"
)

// IntSlots maps the integer slot names of the frame to register numbers.
var IntSlots = map[string]int{
	"RA": 1, "SP": 2, "GP": 3, "TP": 4,
	"T0": 5, "T1": 6, "T2": 7,
	"S0": 8, "S1": 9,
	"A0": 10, "A1": 11, "A2": 12, "A3": 13, "A4": 14, "A5": 15, "A6": 16, "A7": 17,
	"S2": 18, "S3": 19, "S4": 20, "S5": 21, "S6": 22, "S7": 23, "S8": 24, "S9": 25, "S10": 26, "S11": 27,
	"T3": 28, "T4": 29, "T5": 30, "T6": 31,
}

// Frame is the dispatcher's view of a saved context in hart memory.
type Frame struct {
	// Base is the address passed to the dispatcher.
	Base uint64

	vector *Vector
	hart   *Hart
}

// Get reads the named slot.
func (f *Frame) Get(slot string) (uint64, error) {
	off, ok := f.vector.Layout[slot]
	if !ok {
		return 0, fmt.Errorf("frame has no slot %q", slot)
	}
	return f.hart.Load64(f.Base + uint64(off))
}

// Set writes the named slot. The vector loads it into the hart on return.
func (f *Frame) Set(slot string, v uint64) error {
	off, ok := f.vector.Layout[slot]
	if !ok {
		return fmt.Errorf("frame has no slot %q", slot)
	}
	return f.hart.Store64(f.Base+uint64(off), v)
}

// Words returns every slot of the frame keyed by name.
func (f *Frame) Words() (map[string]uint64, error) {
	words := make(map[string]uint64, len(f.vector.Layout))
	for slot := range f.vector.Layout {
		v, err := f.Get(slot)
		if err != nil {
			return nil, err
		}
		words[slot] = v
	}
	return words, nil
}

// Slots returns the slot names of v ordered by offset.
func (v *Vector) Slots() []string {
	slots := make([]string, 0, len(v.Layout))
	for slot := range v.Layout {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		return v.Layout[slots[i]] < v.Layout[slots[j]]
	})
	return slots
}

// Expected returns the frame contents a correct vector saves for state s
// when the trap is taken with cause.
func (v *Vector) Expected(s State, cause uint64) map[string]uint64 {
	words := make(map[string]uint64, len(v.Layout))
	for slot, reg := range IntSlots {
		words[slot] = s.X[reg]
	}
	words["MEPC"] = s.PC
	words["MCAUSE"] = cause

	if v.Variant == VariantFPU {
		for i, f := range s.F {
			words[fmt.Sprintf("F%d", i)] = f
		}
		words["FCSR"] = s.FCSR
	}
	return words
}
