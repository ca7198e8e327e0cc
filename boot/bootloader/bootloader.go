// Package bootloader implements the top level of the loader: it reads the
// kernel image from the boot volume, places it in physical memory, collects
// the handoff arguments and transfers control to the kernel.
package bootloader

import (
	"gopherboot/boot/efi"
	"gopherboot/boot/handoff"
	"gopherboot/boot/imagefs"
	"gopherboot/boot/loader"
	"gopherboot/bootinfo"
	"gopherboot/kernel"
	"gopherboot/kernel/kfmt"

	"github.com/pkg/errors"
)

var (
	// ErrGraphicsMode is returned when the active graphics mode cannot be
	// queried.
	ErrGraphicsMode = &kernel.Error{Module: "bootloader", Message: "unable to query graphics mode"}

	// ErrExitBootServices is returned when the firmware refuses to exit
	// its boot services.
	ErrExitBootServices = &kernel.Error{Module: "bootloader", Message: "unable to exit boot services"}

	log = &kfmt.PrefixWriter{Prefix: []byte("[bootloader] ")}

	// The following functions are mocked by tests.
	transferFn = handoff.Transfer
	panicFn    = kfmt.Panic
)

// Handoff holds the arguments of the kernel entry point.
type Handoff struct {
	Entry         uintptr
	FrameBuffer   bootinfo.FrameBuffer
	PlatformTable uintptr
}

// Prepare loads the kernel image, collects the kernel entry arguments and
// exits the firmware boot services. Memory reserved for the kernel image is
// not released if a later step fails.
func Prepare(fw efi.Firmware) (Handoff, error) {
	opts := ParseOptions(fw.LoadOptions())

	if opts.MemoryMap {
		if descriptors, err := fw.MemoryMap(); err != nil {
			kfmt.Fprintf(log, "unable to read memory map: %s\n", err.Error())
		} else {
			printMemoryMap(log, descriptors)
		}
	}

	root, err := imagefs.OpenVolume(fw)
	if err != nil {
		return Handoff{}, err
	}

	image, err := imagefs.ReadFile(root, opts.KernelPath)
	if err != nil {
		return Handoff{}, errors.Wrap(err, "reading kernel image")
	}
	kfmt.Fprintf(log, "read %d bytes from %s\n", len(image), opts.KernelPath)

	entry, err := loader.New(fw).Load(image)
	if err != nil {
		return Handoff{}, errors.Wrapf(err, "loading %s", opts.KernelPath)
	}

	platformTable, err := handoff.FindPlatformTable(fw.ConfigTables())
	if err != nil {
		return Handoff{}, err
	}

	mode, err := fw.GraphicsMode()
	if err != nil {
		return Handoff{}, errors.Wrap(ErrGraphicsMode, err.Error())
	}

	fb, err := handoff.FrameBuffer(mode)
	if err != nil {
		return Handoff{}, err
	}

	if err = fw.ExitBootServices(); err != nil {
		return Handoff{}, errors.Wrap(ErrExitBootServices, err.Error())
	}

	return Handoff{Entry: entry, FrameBuffer: fb, PlatformTable: platformTable}, nil
}

// Boot sends loader output to the firmware console, runs Prepare and
// transfers control to the kernel. On success, Boot does not return.
func Boot(fw efi.Firmware) error {
	kfmt.SetOutputSink(fw.ConsoleOut())

	h, err := Prepare(fw)
	if err != nil {
		return err
	}

	// The firmware console is gone once boot services have exited. Output
	// from here on is buffered until the kernel registers its own console.
	kfmt.SetOutputSink(nil)

	transferFn(h.Entry, h.FrameBuffer, h.PlatformTable)
	return nil
}

// Main runs Boot and halts the CPU if it fails. The failure report is
// written to the firmware console.
func Main(fw efi.Firmware) {
	if err := Boot(fw); err != nil {
		panicFn(err)
	}
}
