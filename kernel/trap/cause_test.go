package trap

import "testing"

func TestCause(t *testing.T) {
	specs := []struct {
		cause     Cause
		interrupt bool
		code      uintptr
		name      string
	}{
		{Cause(IllegalInstruction), false, IllegalInstruction, "illegal instruction"},
		{Cause(MachineEcall), false, MachineEcall, "environment call from M-mode"},
		{Cause(10), false, 10, "reserved"},
		{Cause(24), false, 24, "unknown exception"},
		{causeInterrupt | Cause(MachineTimer), true, MachineTimer, "machine timer interrupt"},
		{causeInterrupt | Cause(MachineSoftware), true, MachineSoftware, "machine software interrupt"},
		{causeInterrupt | Cause(MachineExternal), true, MachineExternal, "machine external interrupt"},
		{causeInterrupt | 1, true, 1, "unknown interrupt"},
		{causeInterrupt | Cause(clicBase+44), true, clicBase + 44, "CLIC interrupt"},
		// CLIC keeps the previous interrupt level in bits 16..23.
		{causeInterrupt | 0x00ff0000 | Cause(clicBase+36), true, clicBase + 36, "CLIC interrupt"},
	}

	for specIndex, spec := range specs {
		if got := spec.cause.IsInterrupt(); got != spec.interrupt {
			t.Errorf("[spec %d] expected IsInterrupt() to return %t; got %t", specIndex, spec.interrupt, got)
		}
		if got := spec.cause.Code(); got != spec.code {
			t.Errorf("[spec %d] expected Code() to return %d; got %d", specIndex, spec.code, got)
		}
		if got := spec.cause.String(); got != spec.name {
			t.Errorf("[spec %d] expected String() to return %q; got %q", specIndex, spec.name, got)
		}
	}
}
