package kfmt

import (
	"gopherboot/kernel"
	"gopherboot/kernel/cpu"

	"github.com/pkg/errors"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the active output sink and
// halts the CPU. Calls to Panic never return.
//
// Errors wrapped by the boot stage keep the module of the *kernel.Error at
// the root of their cause chain while the message includes the wrapping
// context.
func Panic(e interface{}) {
	var (
		module  string
		message string
	)

	switch t := e.(type) {
	case *kernel.Error:
		module, message = t.Module, t.Message
	case string:
		module, message = errRuntimePanic.Module, t
	case error:
		module, message = errRuntimePanic.Module, t.Error()
		if kerr, ok := errors.Cause(t).(*kernel.Error); ok {
			module = kerr.Module
		}
	}

	Printf("\n-----------------------------------\n")
	if module != "" {
		Printf("[%s] unrecoverable error: %s\n", module, message)
	}
	Printf("*** unrecoverable failure: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}
