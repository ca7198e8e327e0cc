package kmain

import (
	"gopherboot/bootinfo"
	"gopherboot/device/acpi"
	"gopherboot/device/pci"
	"gopherboot/device/tty"
	"gopherboot/device/video/console/font"
	"gopherboot/device/video/console/logo"
	"gopherboot/device/video/fb"
	"gopherboot/kernel"
	"gopherboot/kernel/cpu"
	"gopherboot/kernel/hal"
	"gopherboot/kernel/kfmt"
	"image/color"
)

var (
	// The kernel entry point must match the signature the loader jumps to.
	_ bootinfo.EntryFunc = Kmain

	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{R: 0x1e, G: 0x5a, B: 0xa8, A: 255}

	// Pixel position of the cursor art.
	cursorX, cursorY = 100, 100

	// Vertical space between the banner art and the console.
	bannerPadding = 4
)

// Kmain is the kernel entrypoint that the loader jumps to. The loader passes
// a pointer to the framebuffer descriptor and the physical address of the
// ACPI RSDP (0 if the firmware did not publish one).
//
// Kmain is not expected to return. After initialization completes the CPU is
// parked in a halt loop.
//
//go:noinline
func Kmain(fbDesc *bootinfo.FrameBuffer, rsdpAddr uintptr) {
	if err := Init(fbDesc, rsdpAddr, pci.PortConfigSpace{}); err != nil {
		kfmt.Panic(err)
	}

	for {
		cpu.Halt()
	}
}

// Init sets up the framebuffer console, redirects kfmt output to it and runs
// hardware detection. The PCI configuration space is accessed through cs.
func Init(fbDesc *bootinfo.FrameBuffer, rsdpAddr uintptr, cs pci.ConfigSpace) *kernel.Error {
	surface, err := fb.NewSurface(fbDesc)
	if err != nil {
		return err
	}

	width, height := surface.Dimensions()
	surface.SetFont(font.BestFit(width, height))
	surface.Clear(white)
	surface.DrawArt(cursorX, cursorY, &logo.Cursor, red)

	consoleY := 0
	if banner := logo.BestFit(width, height); banner != nil {
		surface.DrawArt(0, 0, banner, blue)
		consoleY = int(banner.Height) + bannerPadding
	}

	cons := tty.NewConsole(surface, consoleY, black, white)
	kfmt.SetOutputSink(cons)

	kfmt.Printf("gopherboot kernel\n")
	kfmt.Printf("framebuffer: %dx%d stride %d format %s\n",
		fbDesc.Width, fbDesc.Height, fbDesc.Stride, fbDesc.Format.String(),
	)
	kfmt.Printf("rsdp: 0x%x\n", rsdpAddr)

	acpi.SetRSDPAddress(rsdpAddr)
	pci.SetConfigSpace(cs)
	hal.DetectHardware()

	return nil
}
