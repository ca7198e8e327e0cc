package mm

import "gopherboot/kernel"

// Arena is a block of host memory that stands in for the physical address
// range [Base, Base+len(Mem)). Its Map method can be registered with
// SetPhysMapper.
type Arena struct {
	Base uintptr
	Mem  []byte
}

// Map returns the part of the arena backing [physAddr, physAddr+size). An
// error is returned if any part of the region lies outside the arena.
func (a *Arena) Map(physAddr uintptr, size Size) ([]byte, *kernel.Error) {
	if physAddr < a.Base {
		return nil, errRegionNotMapped
	}

	start := uint64(physAddr - a.Base)
	if start > uint64(len(a.Mem)) || uint64(size) > uint64(len(a.Mem))-start {
		return nil, errRegionNotMapped
	}

	return a.Mem[start : start+uint64(size) : start+uint64(size)], nil
}
