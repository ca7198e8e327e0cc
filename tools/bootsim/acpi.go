package main

import (
	"encoding/binary"
	"gopherboot/boot/efi"
	"gopherboot/device/acpi/table"
	"gopherboot/kernel/mm"

	"github.com/pkg/errors"
)

// Offsets of the simulated ACPI tables from the start of the ACPI area.
const (
	rsdtOffset = 0x040
	xsdtOffset = 0x100
	fadtOffset = 0x200
	madtOffset = 0x400
	dsdtOffset = 0x500

	fadtLength = 244
)

// dsdtAML is the body of the simulated DSDT: a Scope(\_SB) with no
// children.
var dsdtAML = []byte{0x10, 0x06, 0x5c, 0x5f, 0x53, 0x42, 0x5f}

// configTableEntry is the in-memory layout of EFI_CONFIGURATION_TABLE.
type configTableEntry struct {
	VendorGUID efi.GUID
	Table      uint64
}

func writeBytes(arena *mm.Arena, addr uintptr, b []byte) error {
	dst, kerr := arena.Map(addr, mm.Size(len(b)))
	if kerr != nil {
		return errors.Wrapf(kerr, "writing %d bytes at 0x%x", len(b), addr)
	}

	copy(dst, b)
	return nil
}

// writeSDT writes an ACPI table with the given signature and payload at addr
// and fixes up its checksum.
func writeSDT(arena *mm.Arena, addr uintptr, signature string, revision uint8, payload []byte) error {
	header := table.SDTHeader{
		Length:          uint32(table.SDTHeaderSize + len(payload)),
		Revision:        revision,
		OEMRevision:     1,
		CreatorID:       binary.LittleEndian.Uint32([]byte("GOPH")),
		CreatorRevision: 1,
	}
	copy(header.Signature[:], signature)
	copy(header.OEMID[:], "GOPHER")
	copy(header.OEMTableID[:], "BOOTSIM ")

	b, err := table.Pack(&header)
	if err != nil {
		return errors.Wrapf(err, "encoding %s header", signature)
	}

	b = append(b, payload...)
	table.FixChecksum(b, 9)
	return writeBytes(arena, addr, b)
}

// buildACPITables populates the ACPI area starting at base with an RSDP, an
// RSDT, an XSDT, a FADT that references a DSDT and an empty MADT. It returns
// the address of the RSDP.
func buildACPITables(arena *mm.Arena, base uintptr) (uintptr, error) {
	var (
		fadtAddr = base + fadtOffset
		madtAddr = base + madtOffset
		dsdtAddr = base + dsdtOffset
	)

	rsdtPayload := make([]byte, 8)
	binary.LittleEndian.PutUint32(rsdtPayload[0:], uint32(fadtAddr))
	binary.LittleEndian.PutUint32(rsdtPayload[4:], uint32(madtAddr))

	xsdtPayload := make([]byte, 16)
	binary.LittleEndian.PutUint64(xsdtPayload[0:], uint64(fadtAddr))
	binary.LittleEndian.PutUint64(xsdtPayload[8:], uint64(madtAddr))

	fadtPayload := make([]byte, fadtLength-table.SDTHeaderSize)
	binary.LittleEndian.PutUint32(fadtPayload[table.FADTDSDTOffset-table.SDTHeaderSize:], uint32(dsdtAddr))
	binary.LittleEndian.PutUint64(fadtPayload[table.FADTExtDSDTOffset-table.SDTHeaderSize:], uint64(dsdtAddr))

	// Local APIC address followed by the flags field.
	madtPayload := make([]byte, 8)
	binary.LittleEndian.PutUint32(madtPayload, 0xfee00000)

	tables := []struct {
		addr      uintptr
		signature string
		revision  uint8
		payload   []byte
	}{
		{base + rsdtOffset, "RSDT", 1, rsdtPayload},
		{base + xsdtOffset, "XSDT", 1, xsdtPayload},
		{fadtAddr, table.FADTSignature, 4, fadtPayload},
		{madtAddr, "APIC", 3, madtPayload},
		{dsdtAddr, "DSDT", 2, dsdtAML},
	}

	for _, t := range tables {
		if err := writeSDT(arena, t.addr, t.signature, t.revision, t.payload); err != nil {
			return 0, err
		}
	}

	rsdp := table.ExtRSDPDescriptor{
		RSDPDescriptor: table.RSDPDescriptor{
			Signature: table.RSDPSignature,
			Revision:  2,
			RSDTAddr:  uint32(base + rsdtOffset),
		},
		Length:   table.ExtRSDPSize,
		XSDTAddr: uint64(base + xsdtOffset),
	}
	copy(rsdp.OEMID[:], "GOPHER")

	b, err := table.Pack(&rsdp)
	if err != nil {
		return 0, errors.Wrap(err, "encoding RSDP")
	}

	table.FixChecksum(b[:table.RSDPSize], 8)
	table.FixChecksum(b, 32)
	if err = writeBytes(arena, base, b); err != nil {
		return 0, err
	}

	return base, nil
}

// writeConfigTables stores the firmware configuration table array at addr and
// returns the number of entries written. Both ACPI revisions point at the
// same RSDP, as they do on most firmware.
func writeConfigTables(arena *mm.Arena, addr, rsdpAddr uintptr) (int, error) {
	entries := []configTableEntry{
		{VendorGUID: efi.SMBIOSTableGUID, Table: 0},
		{VendorGUID: efi.ACPITableGUID, Table: uint64(rsdpAddr)},
		{VendorGUID: efi.ACPI20TableGUID, Table: uint64(rsdpAddr)},
	}

	var raw []byte
	for i := range entries {
		b, err := table.Pack(&entries[i])
		if err != nil {
			return 0, errors.Wrap(err, "encoding configuration table")
		}
		raw = append(raw, b...)
	}

	if err := writeBytes(arena, addr, raw); err != nil {
		return 0, err
	}

	return len(entries), nil
}
