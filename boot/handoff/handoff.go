// Package handoff prepares the arguments of the kernel entry point and
// transfers control to the kernel.
package handoff

import (
	"bytes"
	"gopherboot/boot/efi"
	"gopherboot/bootinfo"
	"gopherboot/device/acpi/table"
	"gopherboot/kernel"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mm"

	"github.com/pkg/errors"
)

const (
	acpiRev2Plus uint8 = 2

	configTableEntrySize = 24
)

var (
	// ErrPlatformTableNotFound is returned when the firmware configuration
	// table does not reference an ACPI RSDP.
	ErrPlatformTableNotFound = &kernel.Error{Module: "handoff", Message: "ACPI RSDP not found in firmware configuration table"}

	// ErrPlatformTableInvalid is returned when the referenced RSDP fails
	// signature or checksum validation.
	ErrPlatformTableInvalid = &kernel.Error{Module: "handoff", Message: "invalid ACPI RSDP"}

	// ErrUnsupportedPixelFormat is returned when the active graphics mode
	// does not expose a linear 32-bit RGB or BGR framebuffer.
	ErrUnsupportedPixelFormat = &kernel.Error{Module: "handoff", Message: "unsupported framebuffer pixel format"}

	// ErrConfigTable is returned when a raw configuration table array
	// cannot be decoded.
	ErrConfigTable = &kernel.Error{Module: "handoff", Message: "malformed firmware configuration table"}

	// platformTableGUIDs lists the recognized RSDP identifiers, newest
	// first.
	platformTableGUIDs = []efi.GUID{efi.ACPI20TableGUID, efi.ACPITableGUID}

	// handoffFrameBuffer holds the descriptor passed to the kernel. It
	// must outlive the loader stack.
	handoffFrameBuffer bootinfo.FrameBuffer

	log = &kfmt.PrefixWriter{Prefix: []byte("[handoff] ")}

	// The following functions are mocked by tests.
	mapRegionFn = mm.MapRegion
	enterFn     = bootinfo.Enter
)

// FindPlatformTable scans the firmware configuration table for an ACPI RSDP,
// preferring the ACPI 2.0+ entry, and returns its physical address after
// validating its signature and checksums. If the newer RSDP is invalid, a
// valid ACPI 1.0 RSDP is used instead.
func FindPlatformTable(entries []efi.ConfigTable) (uintptr, error) {
	var lastErr error

	for _, guid := range platformTableGUIDs {
		addr, found := lookupConfigTable(entries, guid)
		if !found {
			continue
		}

		if err := validateRSDP(addr); err != nil {
			kfmt.Fprintf(log, "ignoring RSDP at 0x%16x: %s\n", addr, err.Error())
			lastErr = err
			continue
		}

		kfmt.Fprintf(log, "ACPI RSDP at 0x%16x\n", addr)
		return addr, nil
	}

	if lastErr != nil {
		return 0, lastErr
	}

	return 0, ErrPlatformTableNotFound
}

func lookupConfigTable(entries []efi.ConfigTable, guid efi.GUID) (uintptr, bool) {
	for _, entry := range entries {
		if entry.VendorGUID == guid {
			return entry.Table, true
		}
	}

	return 0, false
}

// validateRSDP checks the signature and the checksums of the RSDP located at
// physical address addr.
func validateRSDP(addr uintptr) error {
	if addr == 0 {
		return errors.Wrap(ErrPlatformTableInvalid, "null table address")
	}

	raw, err := mapRegionFn(addr, table.RSDPSize)
	if err != nil {
		return errors.Wrap(ErrPlatformTableInvalid, err.Error())
	}

	if !bytes.Equal(raw[:len(table.RSDPSignature)], table.RSDPSignature[:]) {
		return errors.Wrap(ErrPlatformTableInvalid, "signature mismatch")
	}

	if !table.ValidChecksum(raw) {
		return errors.Wrap(ErrPlatformTableInvalid, "checksum mismatch")
	}

	var rsdp table.RSDPDescriptor
	if err := table.Unpack(raw, &rsdp); err != nil {
		return errors.Wrap(ErrPlatformTableInvalid, err.Error())
	}

	if rsdp.Revision < acpiRev2Plus {
		return nil
	}

	if raw, err = mapRegionFn(addr, table.ExtRSDPSize); err != nil {
		return errors.Wrap(ErrPlatformTableInvalid, err.Error())
	}

	if !table.ValidChecksum(raw) {
		return errors.Wrap(ErrPlatformTableInvalid, "extended checksum mismatch")
	}

	return nil
}

// FrameBuffer builds the framebuffer descriptor for the graphics mode mode.
func FrameBuffer(mode efi.GraphicsMode) (bootinfo.FrameBuffer, error) {
	var format bootinfo.PixelFormat

	switch mode.PixelFormat {
	case efi.PixelRedGreenBlueReserved8BitPerColor:
		format = bootinfo.RGB
	case efi.PixelBlueGreenRedReserved8BitPerColor:
		format = bootinfo.BGR
	default:
		return bootinfo.FrameBuffer{}, errors.Wrapf(ErrUnsupportedPixelFormat, "graphics output format %d", uint32(mode.PixelFormat))
	}

	if mode.FrameBufferBase == 0 {
		return bootinfo.FrameBuffer{}, errors.Wrap(ErrUnsupportedPixelFormat, "no linear framebuffer")
	}

	fb := bootinfo.FrameBuffer{
		Base:   mode.FrameBufferBase,
		Stride: mode.PixelsPerScanLine,
		Width:  mode.HorizontalResolution,
		Height: mode.VerticalResolution,
		Format: format,
	}

	kfmt.Fprintf(log, "framebuffer at 0x%16x: %dx%d stride %d %s\n",
		fb.Base, fb.Width, fb.Height, fb.Stride, fb.Format.String(),
	)

	return fb, nil
}

// Transfer copies fb to storage that outlives the loader stack and jumps to
// the kernel entry point at entry passing the descriptor and the platform
// table address. Transfer never returns.
func Transfer(entry uintptr, fb bootinfo.FrameBuffer, platformTable uintptr) {
	handoffFrameBuffer = fb
	kfmt.Fprintf(log, "entering kernel at 0x%16x\n", entry)
	enterFn(entry, &handoffFrameBuffer, platformTable)
}

// rawConfigTable is the in-memory layout of EFI_CONFIGURATION_TABLE.
type rawConfigTable struct {
	VendorGUID efi.GUID
	Table      uint64
}

// ParseConfigTables decodes count EFI_CONFIGURATION_TABLE entries from raw.
func ParseConfigTables(raw []byte, count int) ([]efi.ConfigTable, error) {
	if count < 0 || count > len(raw)/configTableEntrySize {
		return nil, errors.Wrapf(ErrConfigTable, "%d entries do not fit in %d bytes", count, len(raw))
	}

	entries := make([]efi.ConfigTable, count)
	for i := range entries {
		var entry rawConfigTable
		if err := table.Unpack(raw[i*configTableEntrySize:], &entry); err != nil {
			return nil, errors.Wrapf(ErrConfigTable, "entry %d: %s", i, err.Error())
		}

		entries[i] = efi.ConfigTable{VendorGUID: entry.VendorGUID, Table: uintptr(entry.Table)}
	}

	return entries, nil
}
