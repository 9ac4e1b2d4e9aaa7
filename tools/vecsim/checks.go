package vecsim

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Memory window and initial state used by the property checks.
const (
	memBase  = 0x42000000
	memSize  = 0x10000
	stackTop = memBase + memSize - 0x100
	altStack = memBase + memSize/2
	trapPC   = 0x23001000

	exceptionCause = 2
	interruptCause = 1<<63 | (16 + 36)
	nestedCause    = 1<<63 | (16 + 44)
)

// Property is a named check run against a single vector.
type Property struct {
	Name string
	Run  func(v *Vector) error
}

// Properties are the checks every vector variant must pass.
var Properties = []Property{
	{"alignment", checkAlignment},
	{"round-trip", checkRoundTrip},
	{"stack-balance", checkStackBalance},
	{"frame-contents", checkFrameContents},
	{"mutation", checkMutation},
	{"context-switch", checkContextSwitch},
	{"nesting", checkNesting},
}

// Check runs every property against v and returns the combined failures.
func Check(v *Vector) error {
	var errs []error
	for _, p := range Properties {
		if err := p.Run(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s: %w", v.Variant, p.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Seed returns a hart with every register set to a distinct value, SP at
// the top of its stack and machine interrupts enabled.
func Seed(salt uint64) *Hart {
	h := NewHart(memBase, memSize)
	for i := range h.X {
		h.X[i] = uint64(i)<<48 | salt<<32 | 0xa5a50000 | uint64(i)
		h.F[i] = 0x4000_0000_0000_0000 | salt<<32 | uint64(i)<<8
	}
	h.X[0] = 0
	h.X[2] = stackTop
	h.FCSR = 0x65
	h.PC = trapPC
	h.MSTATUS = MstatusMIE
	return h
}

// afterReturn is the state a trap with cause leaves behind when the
// dispatcher changes nothing.
func afterReturn(before State, cause uint64) State {
	exp := before
	exp.MEPC = before.PC
	exp.MCAUSE = cause
	exp.MSTATUS = before.MSTATUS | MstatusMPIE
	return exp
}

func checkAlignment(v *Vector) error {
	switch {
	case v.Align == 0:
		return fmt.Errorf("%s does not start with PCALIGN", VectorSymbol)
	case v.Align&(v.Align-1) != 0:
		return fmt.Errorf("alignment %d is not a power of two", v.Align)
	}
	return nil
}

func checkRoundTrip(v *Vector) error {
	for _, cause := range []uint64{exceptionCause, interruptCause} {
		h := Seed(1)
		before := h.Snapshot()

		if err := h.Trap(v, cause, nil); err != nil {
			return err
		}
		if diff := cmp.Diff(afterReturn(before, cause), h.Snapshot()); diff != "" {
			return fmt.Errorf("cause %#x: state not restored (-want +got):\n%s", cause, diff)
		}
	}
	return nil
}

func checkStackBalance(v *Vector) error {
	h := Seed(2)
	if err := h.Trap(v, interruptCause, nil); err != nil {
		return err
	}

	if h.X[2] != stackTop {
		return fmt.Errorf("sp is %#x after return, expected %#x", h.X[2], stackTop)
	}

	lo, hi, ok := h.Written()
	if !ok {
		return errors.New("the vector stored nothing")
	}
	if floor := uint64(stackTop - v.StackUsage); lo < floor || hi > stackTop {
		return fmt.Errorf("stores cover [%#x, %#x), outside of [%#x, %#x)", lo, hi, floor, uint64(stackTop))
	}

	frames := h.Frames()
	if len(frames) != 1 {
		return fmt.Errorf("expected one dispatch call, got %d", len(frames))
	}
	if exp := uint64(stackTop - v.StackUsage + v.FrameArgs); frames[0] != exp {
		return fmt.Errorf("frame at %#x, expected %#x", frames[0], exp)
	}
	if frames[0]%16 != 0 {
		return fmt.Errorf("frame at %#x is not 16-byte aligned", frames[0])
	}
	return nil
}

func checkFrameContents(v *Vector) error {
	h := Seed(3)
	before := h.Snapshot()

	var got map[string]uint64
	err := h.Trap(v, exceptionCause, func(h *Hart, frame *Frame) error {
		var err error
		got, err = frame.Words()
		return err
	})
	if err != nil {
		return err
	}

	if diff := cmp.Diff(v.Expected(before, exceptionCause), got); diff != "" {
		return fmt.Errorf("frame contents (-want +got):\n%s", diff)
	}
	return nil
}

func checkMutation(v *Vector) error {
	h := Seed(4)
	before := h.Snapshot()

	err := h.Trap(v, exceptionCause, func(h *Hart, frame *Frame) error {
		mepc, err := frame.Get("MEPC")
		if err != nil {
			return err
		}
		for slot, val := range map[string]uint64{"A0": 42, "T0": 0x7777, "S11": 0x1b, "MEPC": mepc + 4} {
			if err := frame.Set(slot, val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	exp := afterReturn(before, exceptionCause)
	exp.X[10], exp.X[5], exp.X[27] = 42, 0x7777, 0x1b
	exp.PC, exp.MEPC = trapPC+4, trapPC+4

	if diff := cmp.Diff(exp, h.Snapshot()); diff != "" {
		return fmt.Errorf("changes not applied (-want +got):\n%s", diff)
	}
	return nil
}

func checkContextSwitch(v *Vector) error {
	h := Seed(5)
	before := h.Snapshot()

	err := h.Trap(v, interruptCause, func(h *Hart, frame *Frame) error {
		return frame.Set("SP", altStack)
	})
	if err != nil {
		return err
	}

	exp := afterReturn(before, interruptCause)
	exp.X[2] = altStack
	if diff := cmp.Diff(exp, h.Snapshot()); diff != "" {
		return fmt.Errorf("resumed context (-want +got):\n%s", diff)
	}
	return nil
}

func checkNesting(v *Vector) error {
	h := Seed(6)
	before := h.Snapshot()

	var innerFrame uint64
	err := h.Trap(v, interruptCause, func(h *Hart, outer *Frame) error {
		// Model dispatcher code that is interrupted midway with live
		// values in registers.
		for i := range h.X {
			if i != 0 && i != 2 {
				h.X[i] = 0x0bad_0000_0000_0000 | uint64(i)
			}
		}
		live := h.Snapshot()

		err := h.Trap(v, nestedCause, func(h *Hart, inner *Frame) error {
			innerFrame = inner.Base
			return nil
		})
		if err != nil {
			return err
		}

		exp := afterReturn(live, nestedCause)
		if diff := cmp.Diff(exp, h.Snapshot()); diff != "" {
			return fmt.Errorf("nested trap did not preserve the dispatcher (-want +got):\n%s", diff)
		}

		if innerFrame+uint64(v.FrameSize) > outer.Base-uint64(v.FrameArgs) {
			return fmt.Errorf("nested frame [%#x, %#x) overlaps the outer allocation at %#x",
				innerFrame, innerFrame+uint64(v.FrameSize), outer.Base-uint64(v.FrameArgs))
		}

		for slot, want := range map[string]uint64{"MEPC": trapPC, "MCAUSE": interruptCause} {
			got, err := outer.Get(slot)
			if err != nil {
				return err
			}
			if got != want {
				return fmt.Errorf("outer frame %s is %#x after the nested trap, expected %#x", slot, got, want)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if diff := cmp.Diff(afterReturn(before, interruptCause), h.Snapshot()); diff != "" {
		return fmt.Errorf("outer context not restored (-want +got):\n%s", diff)
	}
	return nil
}

// Equivalent checks that both variants leave identical integer state for
// the same trap, so choosing a variant never changes integer behaviour.
func Equivalent(a, b *Vector) error {
	run := func(v *Vector) (State, error) {
		h := Seed(7)
		err := h.Trap(v, exceptionCause, func(h *Hart, frame *Frame) error {
			if err := frame.Set("A1", 0x1234); err != nil {
				return err
			}
			return frame.Set("MEPC", trapPC+2)
		})

		s := h.Snapshot()
		s.F, s.FCSR = [32]uint64{}, 0
		return s, err
	}

	sa, err := run(a)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Variant, err)
	}
	sb, err := run(b)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Variant, err)
	}

	if diff := cmp.Diff(sa, sb); diff != "" {
		return fmt.Errorf("%s and %s variants diverge (-%s +%s):\n%s", a.Variant, b.Variant, a.Variant, b.Variant, diff)
	}
	return nil
}
