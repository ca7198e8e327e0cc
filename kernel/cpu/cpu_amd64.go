// Package cpu exposes the handful of privileged amd64 instructions that the
// loader and the kernel need. All functions are implemented in assembly.
package cpu

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution.
func Halt()

// PortWriteDword writes a uint32 value to the requested port.
func PortWriteDword(port uint16, val uint32)

// PortReadDword reads a uint32 value from the requested port.
func PortReadDword(port uint16) uint32

// EnterKernel calls the native function at address entry using the System V
// AMD64 calling convention with arg0 and arg1 loaded into RDI and RSI. The
// stack pointer is realigned to a 16-byte boundary before the call. If the
// callee ever returns, the CPU is halted; EnterKernel never returns.
func EnterKernel(entry, arg0, arg1 uintptr)
