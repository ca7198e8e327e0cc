// Command bootsim runs the loader and the kernel initialization against a
// simulated machine. Physical memory is an anonymous mapping, the firmware is
// emulated in-process and the resulting framebuffer is saved as a PNG image.
// Kernel code is never executed; control is handed to kmain.Init instead.
package main

import (
	"flag"
	"fmt"
	"gopherboot/boot/bootloader"
	"gopherboot/device/video/fb"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/kmain"
	"gopherboot/kernel/mm"
	"io/fs"
	"os"
	"path/filepath"
	"testing/fstest"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[bootsim] error: %s\n", err.Error())
	os.Exit(1)
}

// bootVolume returns the volume exposed by the simulated firmware. If
// kernelPath is empty, the volume holds a stub kernel under the default
// kernel path.
func bootVolume(kernelPath string) (fs.FS, string, error) {
	if kernelPath != "" {
		abs, err := filepath.Abs(kernelPath)
		if err != nil {
			return nil, "", err
		}
		return os.DirFS(filepath.Dir(abs)), filepath.Base(abs), nil
	}

	image, err := stubKernelImage()
	if err != nil {
		return nil, "", err
	}

	return fstest.MapFS{
		bootloader.DefaultKernelPath: &fstest.MapFile{Data: image, Mode: 0644},
	}, bootloader.DefaultKernelPath, nil
}

// simulate runs the boot pipeline on m and initializes the kernel with the
// handoff arguments. It returns a surface over the final framebuffer.
func simulate(m *machine) (*fb.Surface, error) {
	prevMapper := mm.SetPhysMapper(m.arena.Map)
	defer mm.SetPhysMapper(prevMapper)

	// The loader writes to the firmware console and kmain.Init redirects
	// kfmt output to the framebuffer console.
	sink := kfmt.GetOutputSink()
	defer kfmt.SetOutputSink(sink)
	kfmt.SetOutputSink(m.ConsoleOut())

	h, err := bootloader.Prepare(m)
	if err != nil {
		return nil, err
	}

	kfmt.Printf("[bootsim] entering kernel at 0x%x (framebuffer 0x%x, rsdp 0x%x)\n",
		h.Entry, h.FrameBuffer.Base, h.PlatformTable,
	)

	if kerr := kmain.Init(&h.FrameBuffer, h.PlatformTable, m.pci); kerr != nil {
		return nil, kerr
	}

	surface, kerr := fb.NewSurface(&h.FrameBuffer)
	if kerr != nil {
		return nil, kerr
	}

	return surface, nil
}

func runTool() error {
	kernelPath := flag.String("kernel", "", "path to the kernel ELF image; a stub kernel is used when empty")
	output := flag.String("out", "framebuffer.png", "the PNG file to write the final framebuffer to")
	width := flag.Uint("width", 640, "the horizontal resolution of the simulated display")
	height := flag.Uint("height", 480, "the vertical resolution of the simulated display")
	bgr := flag.Bool("bgr", false, "use BGR instead of RGB pixel channel order")
	memMb := flag.Uint("mem", 64, "the amount of simulated physical memory in megabytes")
	memMap := flag.Bool("memmap", true, "print the firmware memory map")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "bootsim: run the loader and kernel initialization on a simulated machine\n\n")
		fmt.Fprint(os.Stderr, "Usage: bootsim [options]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	term := newTermWriter(os.Stdout)
	defer term.Flush()
	kfmt.SetOutputSink(term)

	volume, kernelName, err := bootVolume(*kernelPath)
	if err != nil {
		return err
	}

	loadOptions := "kernel=" + kernelName
	if !*memMap {
		loadOptions += " memmap=off"
	}

	memSize := int(mm.Size(*memMb) * mm.Mb)
	mem, err := unix.Mmap(-1, 0, memSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return errors.Wrapf(err, "mapping %d bytes of simulated memory", memSize)
	}
	defer unix.Munmap(mem)

	m, err := newMachine(machineConfig{
		width:       uint32(*width),
		height:      uint32(*height),
		bgr:         *bgr,
		loadOptions: loadOptions,
		console:     term,
	}, mem, volume)
	if err != nil {
		return err
	}

	surface, err := simulate(m)
	if err != nil {
		return errors.Wrap(err, "boot failed")
	}

	if err = gg.NewContextForImage(surface).SavePNG(*output); err != nil {
		return errors.Wrapf(err, "saving %s", *output)
	}

	kfmt.Printf("[bootsim] framebuffer saved to %s\n", *output)
	return nil
}

func main() {
	if err := runTool(); err != nil {
		exit(err)
	}
}
