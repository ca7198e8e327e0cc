package handoff

import (
	"bytes"
	"encoding/binary"
	"gopherboot/boot/efi"
	"gopherboot/bootinfo"
	"gopherboot/device/acpi/table"
	"gopherboot/kernel/mm"
	"math"
	"testing"

	"github.com/pkg/errors"
)

const (
	arenaBase = 0xe0000
	rsdp1Addr = 0xe0000
	rsdp2Addr = 0xe0040
)

func withArena(t *testing.T) *mm.Arena {
	arena := &mm.Arena{Base: arenaBase, Mem: make([]byte, 0x1000)}
	origMapRegion := mapRegionFn
	mapRegionFn = arena.Map
	t.Cleanup(func() { mapRegionFn = origMapRegion })
	return arena
}

func writeRSDP(t *testing.T, arena *mm.Arena, addr uintptr, revision uint8) []byte {
	rsdp := table.ExtRSDPDescriptor{
		RSDPDescriptor: table.RSDPDescriptor{
			Signature: table.RSDPSignature,
			OEMID:     [6]byte{'G', 'O', 'P', 'H', 'E', 'R'},
			Revision:  revision,
			RSDTAddr:  0xe1000,
		},
		Length:   table.ExtRSDPSize,
		XSDTAddr: 0xe2000,
	}

	b, err := table.Pack(&rsdp)
	if err != nil {
		t.Fatal(err)
	}

	if revision < 2 {
		b = b[:table.RSDPSize]
	}

	table.FixChecksum(b[:table.RSDPSize], 8)
	if revision >= 2 {
		table.FixChecksum(b, 32)
	}

	dst, kerr := arena.Map(addr, mm.Size(len(b)))
	if kerr != nil {
		t.Fatal(kerr)
	}
	copy(dst, b)
	return dst
}

func TestFindPlatformTable(t *testing.T) {
	arena := withArena(t)
	writeRSDP(t, arena, rsdp1Addr, 0)
	writeRSDP(t, arena, rsdp2Addr, 2)

	specs := []struct {
		entries []efi.ConfigTable
		exp     uintptr
	}{
		{
			[]efi.ConfigTable{
				{VendorGUID: efi.SMBIOSTableGUID, Table: 0xf0000},
				{VendorGUID: efi.ACPITableGUID, Table: rsdp1Addr},
			},
			rsdp1Addr,
		},
		{
			[]efi.ConfigTable{
				{VendorGUID: efi.ACPI20TableGUID, Table: rsdp2Addr},
			},
			rsdp2Addr,
		},
		// the newer table wins regardless of ordering
		{
			[]efi.ConfigTable{
				{VendorGUID: efi.ACPITableGUID, Table: rsdp1Addr},
				{VendorGUID: efi.SMBIOSTableGUID, Table: 0xf0000},
				{VendorGUID: efi.ACPI20TableGUID, Table: rsdp2Addr},
			},
			rsdp2Addr,
		},
	}

	for specIndex, spec := range specs {
		got, err := FindPlatformTable(spec.entries)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}

		if got != spec.exp {
			t.Errorf("[spec %d] expected table at 0x%x; got 0x%x", specIndex, spec.exp, got)
		}
	}
}

func TestFindPlatformTableNotFound(t *testing.T) {
	withArena(t)

	specs := [][]efi.ConfigTable{
		nil,
		{{VendorGUID: efi.SMBIOSTableGUID, Table: 0xf0000}},
	}

	for specIndex, entries := range specs {
		if _, err := FindPlatformTable(entries); errors.Cause(err) != ErrPlatformTableNotFound {
			t.Errorf("[spec %d] expected ErrPlatformTableNotFound; got %v", specIndex, err)
		}
	}
}

func TestFindPlatformTableInvalid(t *testing.T) {
	specs := []struct {
		descr   string
		corrupt func(rsdp []byte)
	}{
		{"bad signature", func(rsdp []byte) { rsdp[0] = 'X' }},
		{"bad checksum", func(rsdp []byte) { rsdp[9]++ }},
		{"bad extended checksum", func(rsdp []byte) { rsdp[table.RSDPSize+1]++ }},
	}

	for specIndex, spec := range specs {
		arena := withArena(t)
		spec.corrupt(writeRSDP(t, arena, rsdp2Addr, 2))

		_, err := FindPlatformTable([]efi.ConfigTable{
			{VendorGUID: efi.ACPI20TableGUID, Table: rsdp2Addr},
		})
		if errors.Cause(err) != ErrPlatformTableInvalid {
			t.Errorf("[spec %d] %s: expected ErrPlatformTableInvalid; got %v", specIndex, spec.descr, err)
		}
	}

	t.Run("null or unmapped address", func(t *testing.T) {
		withArena(t)
		for _, addr := range []uintptr{0, 0x800000} {
			_, err := FindPlatformTable([]efi.ConfigTable{{VendorGUID: efi.ACPITableGUID, Table: addr}})
			if errors.Cause(err) != ErrPlatformTableInvalid {
				t.Errorf("expected ErrPlatformTableInvalid for address 0x%x; got %v", addr, err)
			}
		}
	})
}

func TestFindPlatformTableFallsBackToValidOlderTable(t *testing.T) {
	arena := withArena(t)
	writeRSDP(t, arena, rsdp1Addr, 0)
	writeRSDP(t, arena, rsdp2Addr, 2)[0] = 'X'

	got, err := FindPlatformTable([]efi.ConfigTable{
		{VendorGUID: efi.ACPI20TableGUID, Table: rsdp2Addr},
		{VendorGUID: efi.ACPITableGUID, Table: rsdp1Addr},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got != rsdp1Addr {
		t.Fatalf("expected fallback to the ACPI 1.0 RSDP at 0x%x; got 0x%x", rsdp1Addr, got)
	}
}

func TestFrameBuffer(t *testing.T) {
	mode := efi.GraphicsMode{
		FrameBufferBase:      0x80000000,
		FrameBufferSize:      1024 * 768 * 4,
		HorizontalResolution: 1000,
		VerticalResolution:   768,
		PixelsPerScanLine:    1024,
	}

	specs := []struct {
		format    efi.GraphicsPixelFormat
		base      uintptr
		expFormat bootinfo.PixelFormat
		expErr    error
	}{
		{efi.PixelRedGreenBlueReserved8BitPerColor, 0x80000000, bootinfo.RGB, nil},
		{efi.PixelBlueGreenRedReserved8BitPerColor, 0x80000000, bootinfo.BGR, nil},
		{efi.PixelBitMask, 0x80000000, 0, ErrUnsupportedPixelFormat},
		{efi.PixelBltOnly, 0x80000000, 0, ErrUnsupportedPixelFormat},
		{efi.GraphicsPixelFormat(42), 0x80000000, 0, ErrUnsupportedPixelFormat},
		{efi.PixelBlueGreenRedReserved8BitPerColor, 0, 0, ErrUnsupportedPixelFormat},
	}

	for specIndex, spec := range specs {
		mode.PixelFormat = spec.format
		mode.FrameBufferBase = spec.base

		fb, err := FrameBuffer(mode)
		if errors.Cause(err) != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
			continue
		}

		if spec.expErr != nil {
			continue
		}

		exp := bootinfo.FrameBuffer{Base: 0x80000000, Stride: 1024, Width: 1000, Height: 768, Format: spec.expFormat}
		if fb != exp {
			t.Errorf("[spec %d] expected descriptor %+v; got %+v", specIndex, exp, fb)
		}
	}
}

func TestTransfer(t *testing.T) {
	defer func() {
		enterFn = bootinfo.Enter
		handoffFrameBuffer = bootinfo.FrameBuffer{}
	}()

	var (
		gotEntry, gotTable uintptr
		gotFB              *bootinfo.FrameBuffer
	)

	enterFn = func(entry uintptr, fb *bootinfo.FrameBuffer, platformTable uintptr) {
		gotEntry, gotFB, gotTable = entry, fb, platformTable
	}

	fb := bootinfo.FrameBuffer{Base: 0x2000000, Stride: 640, Width: 640, Height: 480, Format: bootinfo.BGR}
	Transfer(0x100040, fb, 0xe0000)

	if gotEntry != 0x100040 || gotTable != 0xe0000 {
		t.Fatalf("expected entry 0x100040 and table 0xe0000; got 0x%x and 0x%x", gotEntry, gotTable)
	}

	if gotFB != &handoffFrameBuffer {
		t.Fatal("expected the kernel to receive the package-level descriptor copy")
	}

	if *gotFB != fb {
		t.Fatalf("expected descriptor %+v; got %+v", fb, *gotFB)
	}
}

func TestParseConfigTables(t *testing.T) {
	var raw bytes.Buffer
	for _, entry := range []rawConfigTable{
		{VendorGUID: efi.SMBIOSTableGUID, Table: 0xf0000},
		{VendorGUID: efi.ACPI20TableGUID, Table: 0x7fe14014},
	} {
		binary.Write(&raw, binary.LittleEndian, &entry)
	}

	// ACPI 2.0 GUID wire layout
	if exp, got := []byte{0x71, 0xe8, 0x68, 0x88, 0xf1, 0xe4, 0xd3, 0x11, 0xbc, 0x22}, raw.Bytes()[24:34]; !bytes.Equal(got, exp) {
		t.Fatalf("unexpected GUID encoding % x", got)
	}

	entries, err := ParseConfigTables(raw.Bytes(), 2)
	if err != nil {
		t.Fatal(err)
	}

	exp := []efi.ConfigTable{
		{VendorGUID: efi.SMBIOSTableGUID, Table: 0xf0000},
		{VendorGUID: efi.ACPI20TableGUID, Table: 0x7fe14014},
	}
	for i := range exp {
		if entries[i] != exp[i] {
			t.Errorf("expected entry %d to be %+v; got %+v", i, exp[i], entries[i])
		}
	}

	for specIndex, count := range []int{3, -1, math.MaxInt/configTableEntrySize + 1, math.MaxInt} {
		if _, err = ParseConfigTables(raw.Bytes(), count); errors.Cause(err) != ErrConfigTable {
			t.Errorf("[spec %d] expected ErrConfigTable for count %d; got %v", specIndex, count, err)
		}
	}
}
