// Package bootinfo defines the data handed from the loader to the kernel. Both
// builds import it so the layout of FrameBuffer and the signature of the
// kernel entry point cannot drift apart.
package bootinfo

import (
	"gopherboot/kernel/cpu"
	"unsafe"
)

// BytesPerPixel is the fixed size of a framebuffer pixel.
const BytesPerPixel = 4

// PixelFormat describes the order of the color channels inside a pixel.
type PixelFormat uint32

// The supported pixel formats. The numeric values are part of the handoff
// contract.
const (
	RGB PixelFormat = iota
	BGR
)

// String implements fmt.Stringer for PixelFormat.
func (f PixelFormat) String() string {
	switch f {
	case RGB:
		return "RGB"
	case BGR:
		return "BGR"
	default:
		return "unknown"
	}
}

// FrameBuffer describes a linear framebuffer. The memory region
// [Base, Base+Size()) stays mapped and writable for the lifetime of the
// system.
type FrameBuffer struct {
	// Base is the physical address of the first framebuffer byte.
	Base uintptr

	// Stride is the number of pixels per scan line. It may be larger than
	// Width when the hardware pads each line.
	Stride uint32

	Width  uint32
	Height uint32

	Format PixelFormat
}

// Size returns the length in bytes of the framebuffer memory region.
func (fb *FrameBuffer) Size() uint64 {
	return uint64(fb.Stride) * uint64(fb.Height) * BytesPerPixel
}

// EntryFunc is the signature of the kernel entry point. The kernel receives
// a pointer to the framebuffer descriptor and the physical address of the
// platform (ACPI RSDP) table using the standard SysV amd64 calling
// convention. It never returns.
type EntryFunc func(fb *FrameBuffer, platformTable uintptr)

// enterKernelFn is mocked by tests.
var enterKernelFn = cpu.EnterKernel

// Enter transfers control to the kernel entry point located at entry passing
// fb and platformTable as its two arguments. The caller must ensure that fb
// points to memory that outlives the caller's stack. Enter does not return.
func Enter(entry uintptr, fb *FrameBuffer, platformTable uintptr) {
	enterKernelFn(entry, uintptr(unsafe.Pointer(fb)), platformTable)
}
