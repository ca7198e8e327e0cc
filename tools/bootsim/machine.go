package main

import (
	"gopherboot/boot/efi"
	"gopherboot/boot/handoff"
	"gopherboot/bootinfo"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mm"
	"io"
	"io/fs"
	"sort"

	"github.com/pkg/errors"
)

// Physical memory layout of the simulated machine. The framebuffer is
// placed at the top of memory.
const (
	configTableAddr uintptr = 0x8000
	legacyLow       uintptr = 0xa0000
	acpiLow         uintptr = 0xe0000
	highMemLow      uintptr = 0x100000

	pageSize = uintptr(mm.PageSize)
)

var (
	errBootServicesExited = errors.New("boot services have been exited")
	errMisalignedAddress  = errors.New("address is not page aligned")
	errRangeUnavailable   = errors.New("requested range is not available")
	errMemoryTooSmall     = errors.New("not enough memory for the framebuffer")
)

type machineConfig struct {
	width, height uint32
	bgr           bool
	loadOptions   string

	// console receives the firmware text output; output is discarded
	// when nil.
	console io.Writer
}

type allocation struct {
	addr      uintptr
	pageCount uint64
}

func (a allocation) end() uintptr {
	return a.addr + uintptr(a.pageCount<<mm.PageShift)
}

// machine implements efi.Firmware on top of an arena that stands in for the
// physical memory of the simulated system.
type machine struct {
	arena  *mm.Arena
	volume fs.FS

	regions     []efi.MemoryDescriptor
	allocations []allocation

	configTableCount int
	rsdpAddr         uintptr
	mode             efi.GraphicsMode
	loadOptions      string
	console          io.Writer
	exited           bool

	pci pciConfigSpace
}

// newMachine lays out the physical memory backed by mem and populates the
// firmware tables. The arena starts at physical address 0.
func newMachine(cfg machineConfig, mem []byte, volume fs.FS) (*machine, error) {
	var (
		memSize = uintptr(len(mem)) &^ (pageSize - 1)
		fbSize  = uintptr(cfg.width) * uintptr(cfg.height) * bootinfo.BytesPerPixel
		fbPages = mm.PageCount(mm.Size(fbSize))
		fbBase  = memSize - uintptr(fbPages<<mm.PageShift)
	)

	if cfg.width == 0 || cfg.height == 0 || fbSize > memSize || fbBase <= highMemLow {
		return nil, errors.Wrapf(errMemoryTooSmall, "%dx%d framebuffer in %d bytes", cfg.width, cfg.height, len(mem))
	}

	m := &machine{
		arena:       &mm.Arena{Base: 0, Mem: mem[:memSize]},
		volume:      volume,
		loadOptions: cfg.loadOptions,
		console:     cfg.console,
		pci:         newPCIConfigSpace(),
		mode: efi.GraphicsMode{
			FrameBufferBase:      fbBase,
			FrameBufferSize:      uint64(fbSize),
			HorizontalResolution: cfg.width,
			VerticalResolution:   cfg.height,
			PixelsPerScanLine:    cfg.width,
			PixelFormat:          efi.PixelRedGreenBlueReserved8BitPerColor,
		},
	}

	if m.console == nil {
		m.console = io.Discard
	}

	if cfg.bgr {
		m.mode.PixelFormat = efi.PixelBlueGreenRedReserved8BitPerColor
	}

	m.addRegion(efi.ReservedMemoryType, 0, pageSize)
	m.addRegion(efi.ConventionalMemory, pageSize, configTableAddr)
	m.addRegion(efi.RuntimeServicesData, configTableAddr, configTableAddr+pageSize)
	m.addRegion(efi.ConventionalMemory, configTableAddr+pageSize, legacyLow)
	m.addRegion(efi.ReservedMemoryType, legacyLow, acpiLow)
	m.addRegion(efi.ACPIReclaimMemory, acpiLow, highMemLow)
	m.addRegion(efi.ConventionalMemory, highMemLow, fbBase)
	m.addRegion(efi.MemoryMappedIO, fbBase, memSize)

	var err error
	if m.rsdpAddr, err = buildACPITables(m.arena, acpiLow); err != nil {
		return nil, err
	}

	if m.configTableCount, err = writeConfigTables(m.arena, configTableAddr, m.rsdpAddr); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *machine) addRegion(memType efi.MemoryType, start, end uintptr) {
	m.regions = append(m.regions, efi.MemoryDescriptor{
		Type:          memType,
		PhysicalStart: uint64(start),
		NumberOfPages: uint64(end-start) >> mm.PageShift,
	})
}

// AllocatePagesAt implements efi.PageAllocator. The requested range must lie
// inside a single conventional memory region and must not overlap a previous
// allocation.
func (m *machine) AllocatePagesAt(addr uintptr, pageCount uint64) error {
	if m.exited {
		return errBootServicesExited
	}

	if addr&(pageSize-1) != 0 {
		return errors.Wrapf(errMisalignedAddress, "0x%x", addr)
	}

	req := allocation{addr: addr, pageCount: pageCount}
	if pageCount == 0 || req.end() < req.addr {
		return errors.Wrapf(errRangeUnavailable, "%d pages at 0x%x", pageCount, addr)
	}

	var inConventional bool
	for _, region := range m.regions {
		start := uintptr(region.PhysicalStart)
		if region.Type == efi.ConventionalMemory && start <= req.addr && req.end() <= start+uintptr(region.Length()) {
			inConventional = true
			break
		}
	}

	if !inConventional {
		return errors.Wrapf(errRangeUnavailable, "[0x%x - 0x%x) is not conventional memory", req.addr, req.end())
	}

	for _, a := range m.allocations {
		if req.addr < a.end() && a.addr < req.end() {
			return errors.Wrapf(errRangeUnavailable, "[0x%x - 0x%x) overlaps [0x%x - 0x%x)", req.addr, req.end(), a.addr, a.end())
		}
	}

	m.allocations = append(m.allocations, req)
	sort.Slice(m.allocations, func(i, j int) bool { return m.allocations[i].addr < m.allocations[j].addr })
	return nil
}

// OpenVolume implements efi.Firmware.
func (m *machine) OpenVolume() (fs.FS, error) {
	if m.exited {
		return nil, errBootServicesExited
	}
	return m.volume, nil
}

// MemoryMap implements efi.Firmware. Allocated ranges are reported as loader
// data carved out of the conventional regions that contain them.
func (m *machine) MemoryMap() ([]efi.MemoryDescriptor, error) {
	if m.exited {
		return nil, errBootServicesExited
	}

	var descriptors []efi.MemoryDescriptor
	emit := func(memType efi.MemoryType, start, end uintptr) {
		if end > start {
			descriptors = append(descriptors, efi.MemoryDescriptor{
				Type:          memType,
				PhysicalStart: uint64(start),
				NumberOfPages: uint64(end-start) >> mm.PageShift,
			})
		}
	}

	for _, region := range m.regions {
		start, end := uintptr(region.PhysicalStart), uintptr(region.PhysicalStart+region.Length())
		if region.Type != efi.ConventionalMemory {
			descriptors = append(descriptors, region)
			continue
		}

		cur := start
		for _, a := range m.allocations {
			if a.addr < start || a.end() > end {
				continue
			}

			emit(efi.ConventionalMemory, cur, a.addr)
			emit(efi.LoaderData, a.addr, a.end())
			cur = a.end()
		}
		emit(efi.ConventionalMemory, cur, end)
	}

	return descriptors, nil
}

// GraphicsMode implements efi.Firmware.
func (m *machine) GraphicsMode() (efi.GraphicsMode, error) {
	return m.mode, nil
}

// ConfigTables implements efi.Firmware by decoding the configuration table
// array stored in simulated memory.
func (m *machine) ConfigTables() []efi.ConfigTable {
	raw, kerr := m.arena.Map(configTableAddr, mm.PageSize)
	if kerr != nil {
		kfmt.Printf("[bootsim] unable to map configuration table: %s\n", kerr.Message)
		return nil
	}

	entries, err := handoff.ParseConfigTables(raw, m.configTableCount)
	if err != nil {
		kfmt.Printf("[bootsim] %s\n", err.Error())
		return nil
	}

	return entries
}

// LoadOptions implements efi.Firmware.
func (m *machine) LoadOptions() string {
	return m.loadOptions
}

// ConsoleOut implements efi.Firmware.
func (m *machine) ConsoleOut() io.Writer {
	return m.console
}

// ExitBootServices implements efi.Firmware.
func (m *machine) ExitBootServices() error {
	if m.exited {
		return errBootServicesExited
	}

	m.exited = true
	return nil
}
