package kmain

import (
	"bytes"
	"strings"
	"testing"
	"unsafe"

	"bl602rt/kernel"
	"bl602rt/kernel/kfmt"
	"bl602rt/kernel/trap"
)

// ecallCode is an ecall followed by the next instruction. It lives outside
// the test's stack so its address stays valid while Kmain grows the stack.
var ecallCode = [3]uint16{0x0073, 0x0000, 0x0001}

func mockKmain(t *testing.T) *[]string {
	origInit, origEcall, origHalt, origPanic := trapInitFn, ecallFn, haltFn, panicFn
	t.Cleanup(func() {
		trapInitFn, ecallFn, haltFn, panicFn = origInit, origEcall, origHalt, origPanic
		trap.HandleException(trap.MachineEcall, nil)
		kfmt.SetOutputSink(nil)
	})

	var calls []string
	trapInitFn = func() *kernel.Error {
		calls = append(calls, "init")
		return nil
	}
	haltFn = func() { calls = append(calls, "halt") }
	panicFn = func(e interface{}) {
		calls = append(calls, "panic: "+e.(*kernel.Error).Message)
	}
	return &calls
}

func TestKmain(t *testing.T) {
	calls := mockKmain(t)

	var frame trap.Frame
	frame.MEPC = uintptr(unsafe.Pointer(&ecallCode[0]))

	ecallFn = func() {
		*calls = append(*calls, "ecall")
		handleEcall(&frame)
	}

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)

	Kmain()

	exp := []string{"init", "ecall", "halt", "panic: " + errKmainReturned.Message}
	if strings.Join(*calls, ",") != strings.Join(exp, ",") {
		t.Fatalf("expected calls %v; got %v", exp, *calls)
	}

	if got, exp := frame.MEPC, uintptr(unsafe.Pointer(&ecallCode[2])); got != exp {
		t.Fatalf("expected the ecall handler to skip the ecall instruction; MEPC = %x, want %x", got, exp)
	}

	if !strings.Contains(buf.String(), "bl602rt: trap vector installed\n") {
		t.Fatalf("expected install message; got %q", buf.String())
	}
}

func TestKmainSelfTestFailure(t *testing.T) {
	calls := mockKmain(t)
	ecallFn = func() {}

	Kmain()

	exp := []string{"init", "panic: " + errSelfTest.Message}
	if strings.Join(*calls, ",") != strings.Join(exp, ",") {
		t.Fatalf("expected calls %v; got %v", exp, *calls)
	}
}

func TestKmainInitFailure(t *testing.T) {
	calls := mockKmain(t)

	errInit := &kernel.Error{Module: "trap", Message: "boom"}
	trapInitFn = func() *kernel.Error { return errInit }
	ecallFn = func() { t.Fatal("expected ecall to be skipped after a failed Init") }

	Kmain()

	exp := []string{"panic: boom"}
	if strings.Join(*calls, ",") != strings.Join(exp, ",") {
		t.Fatalf("expected calls %v; got %v", exp, *calls)
	}
}
