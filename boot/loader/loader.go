// Package loader places the loadable segments of an ELF kernel image at their
// link-time physical addresses.
package loader

import (
	"bytes"
	"debug/elf"
	"gopherboot/boot/efi"
	"gopherboot/kernel"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mm"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrImageFormat is returned for images that are not valid amd64 ELF
	// executables or that contain malformed loadable segments.
	ErrImageFormat = &kernel.Error{Module: "loader", Message: "invalid or unsupported kernel image"}

	// ErrAllocation is returned when the physical range required by the
	// image cannot be reserved.
	ErrAllocation = &kernel.Error{Module: "loader", Message: "unable to reserve physical memory for kernel image"}

	// mapRegionFn is mocked by tests.
	mapRegionFn = mm.MapRegion
)

// Segment describes a loadable segment of the kernel image. The image is
// loaded at the same address it is linked for, so Addr is both its virtual
// and its physical address.
type Segment struct {
	Offset   uint64
	FileSize uint64
	Addr     uintptr
	MemSize  uint64
}

// LoadRange is the physical address range [Low, High) that contains all
// loadable segments of an image.
type LoadRange struct {
	Low, High uintptr
}

// Size returns the length of the range in bytes.
func (r LoadRange) Size() mm.Size {
	return mm.Size(r.High - r.Low)
}

// PageCount returns the number of pages needed to cover the range.
func (r LoadRange) PageCount() uint64 {
	return mm.PageCount(r.Size())
}

// Frames returns the first and last physical frame touched by the range.
func (r LoadRange) Frames() (mm.Frame, mm.Frame) {
	return mm.FrameFromAddress(r.Low), mm.FrameFromAddress(r.High - 1)
}

// Loader copies kernel images into physical memory reserved through its page
// allocator.
type Loader struct {
	alloc efi.PageAllocator
	log   io.Writer
}

// New returns a Loader that reserves memory using alloc.
func New(alloc efi.PageAllocator) *Loader {
	return &Loader{
		alloc: alloc,
		log:   &kfmt.PrefixWriter{Prefix: []byte("[loader] ")},
	}
}

// Load places every loadable segment of image at its link address and
// returns the entry point declared by the image header. The bytes of each
// segment that are not backed by the file are zero-filled. Memory reserved
// by Load is never released, even if a later boot step fails.
func (l *Loader) Load(image []byte) (uintptr, error) {
	entry, segments, err := parse(image)
	if err != nil {
		return 0, err
	}

	loadRange, err := ComputeLoadRange(segments)
	if err != nil {
		return 0, err
	}

	pageCount := loadRange.PageCount()
	if err = l.alloc.AllocatePagesAt(loadRange.Low, pageCount); err != nil {
		return 0, errors.Wrapf(ErrAllocation, "%d pages at 0x%x: %s", pageCount, loadRange.Low, err.Error())
	}

	first, last := loadRange.Frames()
	kfmt.Fprintf(l.log, "reserved %d pages at 0x%16x (frames 0x%x - 0x%x)\n",
		pageCount, loadRange.Low, uintptr(first), uintptr(last),
	)

	for index, seg := range segments {
		if err = place(image, seg); err != nil {
			return 0, err
		}

		kfmt.Fprintf(l.log, "segment %d: [0x%16x - 0x%16x) file 0x%x mem 0x%x\n",
			index, seg.Addr, seg.Addr+uintptr(seg.MemSize), seg.FileSize, seg.MemSize,
		)
	}

	kfmt.Fprintf(l.log, "entry point at 0x%16x\n", entry)
	return entry, nil
}

// Segments returns the loadable segments of image.
func Segments(image []byte) ([]Segment, error) {
	_, segments, err := parse(image)
	return segments, err
}

// ComputeLoadRange returns the smallest range that contains all segments. It
// fails with ErrImageFormat if segments is empty or spans no memory.
func ComputeLoadRange(segments []Segment) (LoadRange, error) {
	if len(segments) == 0 {
		return LoadRange{}, errors.Wrap(ErrImageFormat, "no loadable segments")
	}

	r := LoadRange{Low: segments[0].Addr, High: segments[0].Addr + uintptr(segments[0].MemSize)}
	for _, seg := range segments[1:] {
		r.Low = min(r.Low, seg.Addr)
		r.High = max(r.High, seg.Addr+uintptr(seg.MemSize))
	}

	if r.High <= r.Low {
		return LoadRange{}, errors.Wrap(ErrImageFormat, "loadable segments span no memory")
	}

	return r, nil
}

// parse validates the image header and collects the loadable segments.
func parse(image []byte) (uintptr, []Segment, error) {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return 0, nil, errors.Wrap(ErrImageFormat, err.Error())
	}

	switch {
	case f.Class != elf.ELFCLASS64:
		return 0, nil, errors.Wrapf(ErrImageFormat, "unsupported class %s", f.Class.String())
	case f.Data != elf.ELFDATA2LSB:
		return 0, nil, errors.Wrapf(ErrImageFormat, "unsupported byte order %s", f.Data.String())
	case f.Machine != elf.EM_X86_64:
		return 0, nil, errors.Wrapf(ErrImageFormat, "unsupported machine %s", f.Machine.String())
	case f.Type != elf.ET_EXEC:
		return 0, nil, errors.Wrapf(ErrImageFormat, "unsupported type %s", f.Type.String())
	}

	var segments []Segment
	for index, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		if prog.Memsz < prog.Filesz {
			return 0, nil, errors.Wrapf(ErrImageFormat, "segment %d: memory size 0x%x is smaller than file size 0x%x", index, prog.Memsz, prog.Filesz)
		}

		if prog.Off > uint64(len(image)) || prog.Filesz > uint64(len(image))-prog.Off {
			return 0, nil, errors.Wrapf(ErrImageFormat, "segment %d: file bytes lie outside the image", index)
		}

		if prog.Vaddr+prog.Memsz < prog.Vaddr {
			return 0, nil, errors.Wrapf(ErrImageFormat, "segment %d: address range overflows", index)
		}

		segments = append(segments, Segment{
			Offset:   prog.Off,
			FileSize: prog.Filesz,
			Addr:     uintptr(prog.Vaddr),
			MemSize:  prog.Memsz,
		})
	}

	return uintptr(f.Entry), segments, nil
}

// place copies the file bytes of seg to its physical address and zero-fills
// the remaining part of the segment.
func place(image []byte, seg Segment) error {
	if seg.MemSize == 0 {
		return nil
	}

	dst, err := mapRegionFn(seg.Addr, mm.Size(seg.MemSize))
	if err != nil {
		return errors.Wrapf(ErrAllocation, "segment at 0x%x: %s", seg.Addr, err.Error())
	}

	kernel.Memcopy(image[seg.Offset:seg.Offset+seg.FileSize], dst)
	kernel.Memset(dst[seg.FileSize:], 0)
	return nil
}
