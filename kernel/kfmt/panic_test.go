package kfmt

import (
	"bytes"
	"errors"
	"testing"

	"bl602rt/kernel"
	"bl602rt/kernel/cpu"
)

func TestPanic(t *testing.T) {
	var buf bytes.Buffer
	SetOutputSink(&buf)

	defer func() {
		cpuHaltFn = cpu.Halt
		SetOutputSink(nil)
	}()

	var cpuHaltCalled bool
	cpuHaltFn = func() {
		cpuHaltCalled = true
	}

	specs := []struct {
		name string
		arg  interface{}
		exp  string
	}{
		{
			"with *kernel.Error",
			&kernel.Error{Module: "trap", Message: "unhandled exception"},
			"\n-----------------------------------\n[trap] unrecoverable error: unhandled exception\n*** trap core halted ***\n-----------------------------------\n",
		},
		{
			"with error",
			errors.New("go error"),
			"\n-----------------------------------\n[rt] unrecoverable error: go error\n*** trap core halted ***\n-----------------------------------\n",
		},
		{
			"with string",
			"string error",
			"\n-----------------------------------\n[rt] unrecoverable error: string error\n*** trap core halted ***\n-----------------------------------\n",
		},
		{
			"without error",
			nil,
			"\n-----------------------------------\n*** trap core halted ***\n-----------------------------------\n",
		},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			buf.Reset()
			cpuHaltCalled = false

			Panic(spec.arg)

			if got := buf.String(); got != spec.exp {
				t.Fatalf("expected to get:\n%q\ngot:\n%q", spec.exp, got)
			}

			if !cpuHaltCalled {
				t.Fatal("expected cpu.Halt() to be called by Panic")
			}
		})
	}
}
