package efi

// GUID is an EFI globally unique identifier. The first three groups are
// stored little-endian.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Well-known configuration table identifiers.
var (
	// ACPI20TableGUID tags the ACPI 2.0+ RSDP.
	ACPI20TableGUID = GUID{0x8868e871, 0xe4f1, 0x11d3, [8]byte{0xbc, 0x22, 0x00, 0x80, 0xc7, 0x3c, 0x88, 0x81}}

	// ACPITableGUID tags the ACPI 1.0 RSDP.
	ACPITableGUID = GUID{0xeb9d2d30, 0x2d88, 0x11d3, [8]byte{0x9a, 0x16, 0x00, 0x90, 0x27, 0x3f, 0xc1, 0x4d}}

	// SMBIOSTableGUID tags the SMBIOS entry point.
	SMBIOSTableGUID = GUID{0xeb9d2d31, 0x2d88, 0x11d3, [8]byte{0x9a, 0x16, 0x00, 0x90, 0x27, 0x3f, 0xc1, 0x4d}}
)

// String returns the canonical textual representation of the GUID
// (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx).
func (g GUID) String() string {
	var buf [36]byte

	putHex(buf[0:8], uint64(g.Data1))
	buf[8] = '-'
	putHex(buf[9:13], uint64(g.Data2))
	buf[13] = '-'
	putHex(buf[14:18], uint64(g.Data3))
	buf[18] = '-'
	putHex(buf[19:21], uint64(g.Data4[0]))
	putHex(buf[21:23], uint64(g.Data4[1]))
	buf[23] = '-'
	for i := 2; i < 8; i++ {
		putHex(buf[24+(i-2)*2:26+(i-2)*2], uint64(g.Data4[i]))
	}

	return string(buf[:])
}

// putHex fills dst with the lower-case, zero-padded hex digits of v.
func putHex(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = "0123456789abcdef"[v&0xf]
		v >>= 4
	}
}
