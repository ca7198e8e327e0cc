package mm

import (
	"gopherboot/kernel"
	"unsafe"
)

var (
	errRegionNotMapped = &kernel.Error{Module: "mm", Message: "physical region is not mapped"}

	// physMapper points to the function registered using SetPhysMapper.
	physMapper PhysMapperFn = IdentityMapRegion
)

// PhysMapperFn is a function that returns a writable view of the physical
// memory region [physAddr, physAddr+size).
type PhysMapperFn func(physAddr uintptr, size Size) ([]byte, *kernel.Error)

// SetPhysMapper registers the function that MapRegion uses to reach physical
// memory and returns the previously registered one. The boot stage runs with
// paging disabled or identity-mapped so the default is IdentityMapRegion;
// hosted tools and tests register an Arena instead.
func SetPhysMapper(fn PhysMapperFn) PhysMapperFn {
	prev := physMapper
	physMapper = fn
	return prev
}

// MapRegion returns a writable view of the physical memory region
// [physAddr, physAddr+size) using the currently registered mapper.
func MapRegion(physAddr uintptr, size Size) ([]byte, *kernel.Error) {
	return physMapper(physAddr, size)
}

// IdentityMapRegion overlays a byte slice on top of the physical memory
// region starting at physAddr. It relies on physical addresses being
// identity-mapped, which holds for the UEFI boot stage and for the kernel
// until it installs its own page tables.
func IdentityMapRegion(physAddr uintptr, size Size) ([]byte, *kernel.Error) {
	if physAddr == 0 {
		return nil, errRegionNotMapped
	}

	if size == 0 {
		return nil, nil
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(physAddr)), int(size)), nil
}
