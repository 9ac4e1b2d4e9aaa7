package clic

import (
	"testing"
	"unsafe"

	"bl602rt/kernel"
)

// mockRegisters points the driver at a zeroed buffer large enough to hold
// both register banks.
func mockRegisters(t *testing.T) []byte {
	buf := make([]byte, intieOffset+NumLines)
	base = uintptr(unsafe.Pointer(&buf[0]))
	t.Cleanup(func() { base = hart0Base })
	return buf
}

func TestEnableDisable(t *testing.T) {
	regs := mockRegisters(t)

	for _, irq := range []IRQ{TimerCh0, TimerCh1, Watchdog, GPIO} {
		if err := Enable(irq); err != nil {
			t.Fatalf("[%s] unexpected error: %v", irq, err)
		}
		if regs[intieOffset+uintptr(irq)] != 1 {
			t.Errorf("[%s] expected INTIE byte %d to be set", irq, irq)
		}
		if !IsEnabled(irq) {
			t.Errorf("[%s] expected IsEnabled to return true", irq)
		}

		if err := Disable(irq); err != nil {
			t.Fatalf("[%s] unexpected error: %v", irq, err)
		}
		if IsEnabled(irq) {
			t.Errorf("[%s] expected IsEnabled to return false", irq)
		}
	}
}

func TestClear(t *testing.T) {
	regs := mockRegisters(t)

	regs[intipOffset+uintptr(GPIO)] = 1
	if !IsPending(GPIO) {
		t.Fatal("expected GPIO to be pending")
	}

	if err := Clear(GPIO); err != nil {
		t.Fatal(err)
	}
	if IsPending(GPIO) {
		t.Fatal("expected Clear to drop the pending request")
	}
}

func TestOutOfRangeLine(t *testing.T) {
	mockRegisters(t)

	irq := IRQ(NumLines)
	for _, fn := range []func(IRQ) *kernel.Error{Enable, Disable, Clear} {
		if err := fn(irq); err != errNoSuchLine {
			t.Errorf("expected errNoSuchLine; got %v", err)
		}
	}

	if IsEnabled(irq) || IsPending(irq) {
		t.Error("expected out of range lines to report disabled and not pending")
	}
}

func TestReset(t *testing.T) {
	regs := mockRegisters(t)
	for i := range regs {
		regs[i] = 0xff
	}

	Reset()

	for irq := IRQ(0); irq < NumLines; irq++ {
		if IsEnabled(irq) || IsPending(irq) {
			t.Fatalf("expected line %d to be disabled and not pending after Reset", irq)
		}
	}

	// Bytes between the pending and enable banks are not touched.
	if regs[NumLines] != 0xff {
		t.Fatal("expected Reset to leave unrelated registers untouched")
	}
}

func TestSource(t *testing.T) {
	specs := []struct {
		irq  IRQ
		exp  uintptr
		name string
	}{
		{TimerCh0, 52, "TimerCh0"},
		{TimerCh1, 53, "TimerCh1"},
		{Watchdog, 54, "Watchdog"},
		{GPIO, 60, "GPIO"},
		{IRQ(20), 20, "IRQ"},
	}

	for _, spec := range specs {
		if got := spec.irq.Source(); got != spec.exp {
			t.Errorf("expected %s to report mcause code %d; got %d", spec.name, spec.exp, got)
		}
		if got := spec.irq.String(); got != spec.name {
			t.Errorf("expected name %q; got %q", spec.name, got)
		}
	}
}
