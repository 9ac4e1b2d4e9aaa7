package sync

import (
	"testing"

	"bl602rt/kernel/cpu"
)

// mockMIE replaces the CSR accessors with a model of mstatus.MIE and returns
// a pointer to it.
func mockMIE(t *testing.T, enabled bool) *bool {
	mie := enabled

	saveAndDisableFn = func() uintptr {
		var state uintptr
		if mie {
			state = cpu.MstatusMIE
		}
		mie = false
		return state
	}
	restoreFn = func(state uintptr) {
		if state&cpu.MstatusMIE != 0 {
			mie = true
		}
	}

	t.Cleanup(func() {
		saveAndDisableFn = cpu.SaveAndDisable
		restoreFn = cpu.Restore
	})

	return &mie
}

func TestCriticalSection(t *testing.T) {
	specs := []struct {
		enabled bool
	}{
		{true},
		{false},
	}

	for specIndex, spec := range specs {
		mie := mockMIE(t, spec.enabled)

		var cs CriticalSection
		cs.Enter()
		if *mie {
			t.Errorf("[spec %d] expected interrupts to be masked inside the section", specIndex)
		}

		cs.Leave()
		if *mie != spec.enabled {
			t.Errorf("[spec %d] expected MIE=%t after Leave; got %t", specIndex, spec.enabled, *mie)
		}
	}
}

func TestNestedCriticalSection(t *testing.T) {
	mie := mockMIE(t, true)

	var cs CriticalSection
	cs.Enter()
	cs.Enter()

	cs.Leave()
	if *mie {
		t.Fatal("expected inner Leave to keep interrupts masked")
	}

	cs.Leave()
	if !*mie {
		t.Fatal("expected outer Leave to unmask interrupts")
	}

	// Unbalanced Leave is a no-op.
	cs.Leave()
	if !*mie {
		t.Fatal("expected unbalanced Leave to leave interrupts untouched")
	}
}

func TestDo(t *testing.T) {
	mie := mockMIE(t, true)

	var maskedInside bool
	Do(func() { maskedInside = !*mie })

	if !maskedInside {
		t.Fatal("expected Do to run fn with interrupts masked")
	}
	if !*mie {
		t.Fatal("expected Do to restore interrupts")
	}
}
