//go:build fpu

package trap

import (
	"fmt"
	"testing"
	"unsafe"
)

func TestFloatLayoutMatchesHeader(t *testing.T) {
	if WordSize != 8 {
		t.Skipf("frame_riscv64.h describes 8-byte slots; host word size is %d", WordSize)
	}

	var (
		defs  = readHeader(t)
		frame Frame
		base  = frame.Base()
	)

	for i := range frame.Float.F {
		name := fmt.Sprintf("F_F%d", i)
		if exp := uintptr(unsafe.Pointer(&frame.Float.F[i])) - base; defs[name] != exp {
			t.Errorf("expected %s to be %d; got %d", name, exp, defs[name])
		}
	}

	if exp := uintptr(unsafe.Pointer(&frame.Float.FCSR)) - base; defs["F_FCSR"] != exp {
		t.Errorf("expected F_FCSR to be %d; got %d", exp, defs["F_FCSR"])
	}

	specs := []struct {
		name string
		exp  uintptr
	}{
		{"FREGS_SIZE", unsafe.Sizeof(FloatRegisters{})},
		{"FRAME_SIZE_FPU", FrameSize},
		{"STACK_USAGE_FPU", StackUsage},
	}

	for _, spec := range specs {
		if got := defs[spec.name]; got != spec.exp {
			t.Errorf("expected %s to be %d; got %d", spec.name, spec.exp, got)
		}
	}
}
