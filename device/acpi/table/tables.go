// Package table defines the layout of the ACPI tables that the loader and the
// kernel inspect. Tables are decoded from raw physical memory windows with
// struc so no unaligned pointer casts are needed.
package table

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
)

// Encoded sizes of the fixed-length structures in this package.
const (
	RSDPSize      = 20
	ExtRSDPSize   = 36
	SDTHeaderSize = 36
)

// RSDPSignature is the signature of the root system descriptor pointer (the
// last byte is a space).
var RSDPSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

// RSDPDescriptor defines the root system descriptor pointer for ACPI 1.0. This
// is used as the entry-point for parsing ACPI data.
type RSDPDescriptor struct {
	// The signature must contain "RSD PTR " (last byte is a space).
	Signature [8]byte

	// A value that when added to the sum of all other bytes contained in
	// this descriptor should result in the value 0.
	Checksum uint8

	OEMID [6]byte

	// ACPI revision number. It is 0 for ACPI1.0 and 2 for versions 2.0 to 6.2.
	Revision uint8

	// Physical address of 32-bit root system descriptor table.
	RSDTAddr uint32
}

// ExtRSDPDescriptor extends RSDPDescriptor with additional fields. It is used
// when RSDPDescriptor.Revision > 1.
type ExtRSDPDescriptor struct {
	RSDPDescriptor

	// The size of the extended descriptor.
	Length uint32

	// Physical address of 64-bit root system descriptor table.
	XSDTAddr uint64

	// A value that when added to the sum of all other bytes contained in
	// this descriptor should result in the value 0.
	ExtendedChecksum uint8

	Reserved [3]byte
}

// SDTHeader defines the common header for all ACPI-related tables.
type SDTHeader struct {
	// The signature defines the table type.
	Signature [4]byte

	// The length of the table including the header.
	Length uint32

	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	// OEM specific information
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the ASL compiler that generated this table
	CreatorID       uint32
	CreatorRevision uint32
}

// Signatures of the tables the driver inspects.
const (
	FADTSignature = "FACP"
	DSDTSignature = "DSDT"
)

// Offsets of the 32-bit and 64-bit (ACPI 2.0+) DSDT address fields within
// the FADT.
const (
	FADTDSDTOffset    = 40
	FADTExtDSDTOffset = 140
)

// Unpack decodes the little-endian structure at the start of b into v.
func Unpack(b []byte, v interface{}) error {
	return struc.UnpackWithOrder(bytes.NewReader(b), v, binary.LittleEndian)
}

// Pack encodes v as a little-endian structure.
func Pack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOrder(&buf, v, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidChecksum returns true if the bytes of b add up to zero.
func ValidChecksum(b []byte) bool {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum == 0
}

// FixChecksum stores into b[offset] the value that makes the bytes of b add
// up to zero.
func FixChecksum(b []byte, offset int) {
	b[offset] = 0
	var sum uint8
	for _, v := range b {
		sum += v
	}
	b[offset] = -sum
}

// Resolver is an interface implemented by objects that can lookup an ACPI table
// by its name.
//
// LookupTable attempts to locate a table by name returning back its standard
// header or nil if the table could not be found.
type Resolver interface {
	LookupTable(string) *SDTHeader
}
