package bootloader

import (
	"gopherboot/boot/efi"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mm"
	"io"
)

// printMemoryMap prints the regions of the firmware memory map followed by
// the total amount of memory that is available for use.
func printMemoryMap(w io.Writer, descriptors []efi.MemoryDescriptor) {
	var totalFree mm.Size

	kfmt.Fprintf(w, "system memory map:\n")
	for i := range descriptors {
		region := &descriptors[i]
		kfmt.Fprintf(w, "\t[0x%10x - 0x%10x], size: %10d, type: %s\n",
			region.PhysicalStart,
			region.PhysicalStart+region.Length(),
			region.Length(),
			region.Type.String(),
		)

		if region.Type.Usable() {
			totalFree += mm.Size(region.Length())
		}
	}
	kfmt.Fprintf(w, "available memory: %dKb\n", uint64(totalFree/mm.Kb))
}
