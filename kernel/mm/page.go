// Package mm contains the physical memory primitives shared by the loader
// and the kernel: page arithmetic and access to physical memory regions.
package mm

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
)

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = 12

	// PageSize defines the system's page size in bytes.
	PageSize = Size(1 << PageShift)
)

// Frame describes a physical memory page index.
type Frame uintptr

// FrameFromAddress returns a Frame that corresponds to
// the given physical address. This function can handle
// both page-aligned and not aligned addresses. in the
// latter case, the input address will be rounded down
// to the frame that contains it.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame((physAddr & ^(uintptr(PageSize - 1))) >> PageShift)
}

// PageCount returns the number of pages needed to hold size bytes. The byte
// length is rounded up to the page size before it is converted.
func PageCount(size Size) uint64 {
	return uint64((size + PageSize - 1) >> PageShift)
}
