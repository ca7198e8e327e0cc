// Package efi describes the firmware services that the loader depends on.
// The loader only talks to the firmware through the Firmware interface which
// allows the whole boot pipeline to run against a simulated machine.
package efi

import (
	"io"
	"io/fs"
)

// PageAllocator reserves physical memory.
type PageAllocator interface {
	// AllocatePagesAt reserves pageCount 4K pages starting at the exact
	// physical address addr. Reserved pages are never released.
	AllocatePagesAt(addr uintptr, pageCount uint64) error
}

// Firmware is implemented by objects that expose the boot services used by
// the loader.
type Firmware interface {
	PageAllocator

	// OpenVolume returns the root directory of the volume the loader was
	// started from.
	OpenVolume() (fs.FS, error)

	// MemoryMap returns the current firmware memory map.
	MemoryMap() ([]MemoryDescriptor, error)

	// GraphicsMode returns the active mode of the graphics output
	// protocol.
	GraphicsMode() (GraphicsMode, error)

	// ConfigTables returns the entries of the firmware configuration
	// table in firmware order.
	ConfigTables() []ConfigTable

	// LoadOptions returns the options string the loader image was
	// started with.
	LoadOptions() string

	// ConsoleOut returns a writer for the firmware text console. The
	// console is only usable until ExitBootServices succeeds.
	ConsoleOut() io.Writer

	// ExitBootServices terminates the firmware boot services. After a
	// successful call, only the memory reserved through AllocatePagesAt
	// and the framebuffer remain usable.
	ExitBootServices() error
}

// ConfigTable is an entry of the firmware configuration table.
type ConfigTable struct {
	VendorGUID GUID

	// Table is the physical address of the vendor table.
	Table uintptr
}
