package efi

// MemoryType describes the type of a memory map region.
type MemoryType uint32

// The memory types defined by the UEFI specification.
const (
	ReservedMemoryType MemoryType = iota
	LoaderCode
	LoaderData
	BootServicesCode
	BootServicesData
	RuntimeServicesCode
	RuntimeServicesData
	ConventionalMemory
	UnusableMemory
	ACPIReclaimMemory
	ACPIMemoryNVS
	MemoryMappedIO
	MemoryMappedIOPortSpace
	PalCode
	PersistentMemory
)

var memoryTypeNames = [...]string{
	"reserved",
	"loader code",
	"loader data",
	"boot services code",
	"boot services data",
	"runtime services code",
	"runtime services data",
	"available",
	"unusable",
	"ACPI reclaimable",
	"ACPI NVS",
	"MMIO",
	"MMIO port space",
	"PAL code",
	"persistent",
}

// String implements fmt.Stringer for MemoryType.
func (t MemoryType) String() string {
	if int(t) < len(memoryTypeNames) {
		return memoryTypeNames[t]
	}
	return "unknown"
}

// MemoryDescriptor describes a region of the firmware memory map.
type MemoryDescriptor struct {
	Type          MemoryType
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
}

// Length returns the region length in bytes.
func (d *MemoryDescriptor) Length() uint64 {
	return d.NumberOfPages << 12
}

// Usable returns true if the region can be used by the kernel once boot
// services have been exited.
func (t MemoryType) Usable() bool {
	switch t {
	case ConventionalMemory, BootServicesCode, BootServicesData:
		return true
	}
	return false
}
