// Package acpi implements a driver that enumerates the ACPI tables reachable
// from the root system descriptor pointer handed over by the loader.
package acpi

import (
	"encoding/binary"
	"gopherboot/device"
	"gopherboot/device/acpi/table"
	"gopherboot/kernel"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mm"
	"io"
)

const acpiRev2Plus uint8 = 2

var (
	errMissingRSDP           = &kernel.Error{Module: "acpi", Message: "could not locate ACPI RSDP"}
	errTableChecksumMismatch = &kernel.Error{Module: "acpi", Message: "detected checksum mismatch while parsing ACPI table header"}
	errMalformedTable        = &kernel.Error{Module: "acpi", Message: "malformed ACPI table"}

	// mapRegionFn is mocked by tests.
	mapRegionFn = mm.MapRegion

	// rsdpAddr is the RSDP address supplied by the loader. When it is not
	// set, the driver scans the BIOS area for the RSDP.
	rsdpAddr uintptr

	// RSDP must be located in the physical memory region 0xe0000 to 0xfffff
	rsdpLocationLow uintptr = 0xe0000
	rsdpLocationHi  uintptr = 0xfffff
	rsdpAlignment   uintptr = 16
)

// SetRSDPAddress registers the physical address of the RSDP that the loader
// discovered through the firmware configuration table.
func SetRSDPAddress(addr uintptr) {
	rsdpAddr = addr
}

// tableEntry describes a mapped and validated ACPI table.
type tableEntry struct {
	addr   uintptr
	header table.SDTHeader
}

type acpiDriver struct {
	// rsdtAddr holds the address to the root system descriptor table.
	rsdtAddr uintptr

	// useXSDT specifies if the driver must use the XSDT or the RSDT table.
	useXSDT bool

	// tables lists the valid tables in discovery order.
	tables []tableEntry
}

// DriverInit initializes this driver.
func (drv *acpiDriver) DriverInit(w io.Writer) *kernel.Error {
	if err := drv.enumerateTables(w); err != nil {
		return err
	}

	drv.printTableInfo(w)
	printDSDTInfo(w, drv)

	return nil
}

// DriverName returns the name of this driver.
func (*acpiDriver) DriverName() string {
	return "ACPI"
}

// DriverVersion returns the version of this driver.
func (*acpiDriver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// LookupTable implements table.Resolver.
func (drv *acpiDriver) LookupTable(name string) *table.SDTHeader {
	for i := range drv.tables {
		if string(drv.tables[i].header.Signature[:]) == name {
			return &drv.tables[i].header
		}
	}

	return nil
}

func (drv *acpiDriver) printTableInfo(w io.Writer) {
	for _, entry := range drv.tables {
		kfmt.Fprintf(w, "%s at 0x%16x %6x (%6s %8s)\n",
			entry.header.Signature[:],
			entry.addr,
			entry.header.Length,
			entry.header.OEMID[:],
			entry.header.OEMTableID[:],
		)
	}
}

// printDSDTInfo reports the size of the AML byte code carried by the DSDT.
func printDSDTInfo(w io.Writer, r table.Resolver) {
	dsdt := r.LookupTable(table.DSDTSignature)
	if dsdt == nil {
		kfmt.Fprintf(w, "no DSDT found\n")
		return
	}

	kfmt.Fprintf(w, "DSDT rev %d: %d bytes of AML\n", dsdt.Revision, dsdt.Length-table.SDTHeaderSize)
}

// enumerateTables detects and validates all ACPI tables listed by the root
// table. Besides the table list, this method also peeks into the FADT (if
// found) looking for the address of the DSDT.
func (drv *acpiDriver) enumerateTables(w io.Writer) *kernel.Error {
	rootHeader, rootData, err := mapACPITable(drv.rsdtAddr)
	if err != nil {
		return err
	}

	drv.tables = append(drv.tables[:0], tableEntry{addr: drv.rsdtAddr, header: rootHeader})

	// RSDT uses 4-byte long pointers whereas the XSDT uses 8-byte long.
	var (
		payload      = rootData[table.SDTHeaderSize:]
		sdtAddresses []uintptr
	)
	switch drv.useXSDT {
	case true:
		for ; len(payload) >= 8; payload = payload[8:] {
			sdtAddresses = append(sdtAddresses, uintptr(binary.LittleEndian.Uint64(payload)))
		}
	default:
		for ; len(payload) >= 4; payload = payload[4:] {
			sdtAddresses = append(sdtAddresses, uintptr(binary.LittleEndian.Uint32(payload)))
		}
	}

	for _, addr := range sdtAddresses {
		header, data, err := drv.addTable(w, addr)
		switch {
		case err == errTableChecksumMismatch:
			continue
		case err != nil:
			return err
		}

		// The FADT allows us to lookup the DSDT table address
		if string(header.Signature[:]) != table.FADTSignature {
			continue
		}

		if dsdtAddr := fadtDSDTAddress(rootHeader.Revision, data); dsdtAddr != 0 {
			if _, _, err = drv.addTable(w, dsdtAddr); err != nil && err != errTableChecksumMismatch {
				return err
			}
		}
	}

	return nil
}

// addTable validates the table at addr and appends it to the table list.
// Tables with a checksum mismatch are reported to w and skipped.
func (drv *acpiDriver) addTable(w io.Writer, addr uintptr) (table.SDTHeader, []byte, *kernel.Error) {
	header, data, err := mapACPITable(addr)
	switch err {
	case nil:
		drv.tables = append(drv.tables, tableEntry{addr: addr, header: header})
	case errTableChecksumMismatch:
		kfmt.Fprintf(w, "%s at 0x%16x %6x [checksum mismatch; skipping]\n",
			header.Signature[:],
			addr,
			header.Length,
		)
	}

	return header, data, err
}

// fadtDSDTAddress returns the DSDT address stored in the FADT contents data.
// ACPI 2.0+ tables provide a 64-bit address which takes precedence.
func fadtDSDTAddress(acpiRev uint8, data []byte) uintptr {
	if acpiRev >= acpiRev2Plus && len(data) >= table.FADTExtDSDTOffset+8 {
		if addr := binary.LittleEndian.Uint64(data[table.FADTExtDSDTOffset:]); addr != 0 {
			return uintptr(addr)
		}
	}

	if len(data) >= table.FADTDSDTOffset+4 {
		return uintptr(binary.LittleEndian.Uint32(data[table.FADTDSDTOffset:]))
	}

	return 0
}

// mapACPITable maps and parses the header for the ACPI table starting at the
// given address. It then uses the length field of the header to expand the
// mapping to cover the table contents and verifies the checksum before
// returning the header and the table contents.
func mapACPITable(tableAddr uintptr) (table.SDTHeader, []byte, *kernel.Error) {
	var header table.SDTHeader

	raw, err := mapRegionFn(tableAddr, table.SDTHeaderSize)
	if err != nil {
		return header, nil, err
	}

	if table.Unpack(raw, &header) != nil || header.Length < table.SDTHeaderSize {
		return header, nil, errMalformedTable
	}

	if raw, err = mapRegionFn(tableAddr, mm.Size(header.Length)); err != nil {
		return header, nil, err
	}

	if !table.ValidChecksum(raw) {
		return header, raw, errTableChecksumMismatch
	}

	return header, raw, nil
}

// locateRSDT returns the physical address of the root system descriptor table
// (RSDT) or the extended system descriptor table (XSDT) if the system
// supports ACPI 2.0+. The RSDP supplied by the loader is preferred; if it is
// missing or invalid, the BIOS area [rsdpLocationLow, rsdpLocationHi] is
// scanned for a valid RSDP.
func locateRSDT() (uintptr, bool, *kernel.Error) {
	if rsdpAddr != 0 {
		if addr, useXSDT, ok := parseRSDP(rsdpAddr); ok {
			return addr, useXSDT, nil
		}
	}

	// The RSDP should be aligned on a 16-byte boundary
	for curPtr := rsdpLocationLow; curPtr+table.RSDPSize <= rsdpLocationHi+1; curPtr += rsdpAlignment {
		if addr, useXSDT, ok := parseRSDP(curPtr); ok {
			return addr, useXSDT, nil
		}
	}

	return 0, false, errMissingRSDP
}

// parseRSDP validates the RSDP at ptr and returns the root table address it
// points to.
func parseRSDP(ptr uintptr) (uintptr, bool, bool) {
	raw, err := mapRegionFn(ptr, table.RSDPSize)
	if err != nil || string(raw[:len(table.RSDPSignature)]) != string(table.RSDPSignature[:]) {
		return 0, false, false
	}

	var rsdp table.RSDPDescriptor
	if !table.ValidChecksum(raw) || table.Unpack(raw, &rsdp) != nil {
		return 0, false, false
	}

	if rsdp.Revision < acpiRev2Plus {
		return uintptr(rsdp.RSDTAddr), false, true
	}

	// System uses ACPI revision > 1 and provides an extended RSDP
	// which can be accessed at the same place.
	var rsdp2 table.ExtRSDPDescriptor
	if raw, err = mapRegionFn(ptr, table.ExtRSDPSize); err != nil {
		return 0, false, false
	}

	if !table.ValidChecksum(raw) || table.Unpack(raw, &rsdp2) != nil {
		return 0, false, false
	}

	return uintptr(rsdp2.XSDTAddr), true, true
}

func probeForACPI() device.Driver {
	if rsdtAddr, useXSDT, err := locateRSDT(); err == nil {
		return &acpiDriver{
			rsdtAddr: rsdtAddr,
			useXSDT:  useXSDT,
		}
	}

	return nil
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderACPI,
		Probe: probeForACPI,
	})
}
