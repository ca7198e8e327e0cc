package acpi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"gopherboot/device/acpi/table"
	"gopherboot/kernel/mm"
	"strings"
	"testing"
)

const (
	arenaBase = 0xe0000
	arenaSize = 0x10000
)

func withArena(t *testing.T) *mm.Arena {
	arena := &mm.Arena{Base: arenaBase, Mem: make([]byte, arenaSize)}

	origMapRegion := mapRegionFn
	origAddr, origLow, origHi := rsdpAddr, rsdpLocationLow, rsdpLocationHi
	mapRegionFn = arena.Map
	rsdpLocationLow, rsdpLocationHi = arenaBase, arenaBase+0x1fff
	t.Cleanup(func() {
		mapRegionFn = origMapRegion
		rsdpAddr, rsdpLocationLow, rsdpLocationHi = origAddr, origLow, origHi
	})

	return arena
}

func write(t *testing.T, arena *mm.Arena, addr uintptr, b []byte) {
	dst, err := arena.Map(addr, mm.Size(len(b)))
	if err != nil {
		t.Fatal(err)
	}
	copy(dst, b)
}

func writeRSDP(t *testing.T, arena *mm.Arena, addr uintptr, revision uint8, rootAddr uintptr) {
	rsdp := table.ExtRSDPDescriptor{
		RSDPDescriptor: table.RSDPDescriptor{
			Signature: table.RSDPSignature,
			Revision:  revision,
			RSDTAddr:  uint32(rootAddr),
		},
		Length:   table.ExtRSDPSize,
		XSDTAddr: uint64(rootAddr),
	}

	b, err := table.Pack(&rsdp)
	if err != nil {
		t.Fatal(err)
	}

	table.FixChecksum(b[:table.RSDPSize], 8)
	table.FixChecksum(b, 32)
	write(t, arena, addr, b)
}

func writeTable(t *testing.T, arena *mm.Arena, addr uintptr, signature string, revision uint8, payload []byte, validChecksum bool) {
	header := table.SDTHeader{
		Length:   uint32(table.SDTHeaderSize + len(payload)),
		Revision: revision,
	}
	copy(header.Signature[:], signature)
	copy(header.OEMID[:], "GOPHER")
	copy(header.OEMTableID[:], "BOOTSIM ")

	b, err := table.Pack(&header)
	if err != nil {
		t.Fatal(err)
	}

	b = append(b, payload...)
	table.FixChecksum(b, 9)
	if !validChecksum {
		b[9]++
	}

	write(t, arena, addr, b)
}

func pointers(useXSDT bool, addrs ...uintptr) []byte {
	var buf bytes.Buffer
	for _, addr := range addrs {
		if useXSDT {
			binary.Write(&buf, binary.LittleEndian, uint64(addr))
		} else {
			binary.Write(&buf, binary.LittleEndian, uint32(addr))
		}
	}
	return buf.Bytes()
}

func fadtPayload(dsdt32 uint32, dsdt64 uint64) []byte {
	payload := make([]byte, 244-table.SDTHeaderSize)
	binary.LittleEndian.PutUint32(payload[table.FADTDSDTOffset-table.SDTHeaderSize:], dsdt32)
	binary.LittleEndian.PutUint64(payload[table.FADTExtDSDTOffset-table.SDTHeaderSize:], dsdt64)
	return payload
}

func TestProbe(t *testing.T) {
	t.Run("loader supplied ACPI1 RSDP", func(t *testing.T) {
		arena := withArena(t)
		writeRSDP(t, arena, 0xe8000, 0, 0xe9000)
		SetRSDPAddress(0xe8000)

		drv := probeForACPI()
		if drv == nil {
			t.Fatal("ACPI probe failed")
		}

		acpiDrv := drv.(*acpiDriver)
		if acpiDrv.rsdtAddr != 0xe9000 || acpiDrv.useXSDT {
			t.Fatalf("expected probe to locate the RSDT at 0xe9000; got 0x%x (xsdt: %t)", acpiDrv.rsdtAddr, acpiDrv.useXSDT)
		}
	})

	t.Run("loader supplied ACPI2+ RSDP", func(t *testing.T) {
		arena := withArena(t)
		writeRSDP(t, arena, 0xe8000, 2, 0xea000)
		SetRSDPAddress(0xe8000)

		acpiDrv, ok := probeForACPI().(*acpiDriver)
		if !ok {
			t.Fatal("ACPI probe failed")
		}

		if acpiDrv.rsdtAddr != 0xea000 || !acpiDrv.useXSDT {
			t.Fatalf("expected probe to locate the XSDT at 0xea000; got 0x%x (xsdt: %t)", acpiDrv.rsdtAddr, acpiDrv.useXSDT)
		}
	})

	t.Run("BIOS area scan", func(t *testing.T) {
		arena := withArena(t)
		writeRSDP(t, arena, 0xe0ff0, 0, 0xe9000)
		SetRSDPAddress(0)

		acpiDrv, ok := probeForACPI().(*acpiDriver)
		if !ok {
			t.Fatal("ACPI probe failed")
		}

		if acpiDrv.rsdtAddr != 0xe9000 {
			t.Fatalf("expected probe to locate the RSDT at 0xe9000; got 0x%x", acpiDrv.rsdtAddr)
		}
	})

	t.Run("RSDP checksum mismatch", func(t *testing.T) {
		arena := withArena(t)
		writeRSDP(t, arena, 0xe8000, 0, 0xe9000)
		arena.Mem[0x8000+9]++
		SetRSDPAddress(0xe8000)

		if drv := probeForACPI(); drv != nil {
			t.Fatal("expected ACPI probe to fail")
		}
	})

	t.Run("extended checksum mismatch", func(t *testing.T) {
		arena := withArena(t)
		writeRSDP(t, arena, 0xe8000, 2, 0xe9000)
		arena.Mem[0x8000+table.RSDPSize+1]++
		SetRSDPAddress(0xe8000)

		if drv := probeForACPI(); drv != nil {
			t.Fatal("expected ACPI probe to fail")
		}
	})
}

func TestDriverInit(t *testing.T) {
	for _, useXSDT := range []bool{false, true} {
		arena := withArena(t)

		var revision uint8
		if useXSDT {
			revision = 2
		}

		writeTable(t, arena, 0xe9000, "RSDT", revision, pointers(useXSDT, 0xea000, 0xeb000, 0xec000), true)
		writeTable(t, arena, 0xea000, "APIC", revision, make([]byte, 8), true)
		writeTable(t, arena, 0xeb000, "HPET", revision, make([]byte, 20), false)
		writeTable(t, arena, 0xec000, "FACP", revision, fadtPayload(0xed000, 0xee000), true)
		writeTable(t, arena, 0xed000, "DSDT", revision, []byte{0x10, 0x20}, true)
		writeTable(t, arena, 0xee000, "DSDT", revision, []byte{0x30}, true)

		drv := &acpiDriver{rsdtAddr: 0xe9000, useXSDT: useXSDT}
		var buf bytes.Buffer
		if err := drv.DriverInit(&buf); err != nil {
			t.Fatal(err)
		}

		out := buf.String()
		for _, exp := range []string{
			"HPET at 0x00000000000eb000 000038 [checksum mismatch; skipping]\n",
			"RSDT at 0x00000000000e9000",
			"APIC at 0x00000000000ea000 00002c (GOPHER BOOTSIM )\n",
			"FACP at 0x00000000000ec000",
		} {
			if !strings.Contains(out, exp) {
				t.Errorf("[xsdt: %t] expected output to contain %q; got:\n%s", useXSDT, exp, out)
			}
		}

		if drv.LookupTable("HPET") != nil {
			t.Errorf("[xsdt: %t] expected table with bad checksum to be skipped", useXSDT)
		}

		// ACPI 2.0+ prefers the 64-bit DSDT pointer
		expDSDTLen := uint32(table.SDTHeaderSize + 2)
		if useXSDT {
			expDSDTLen = table.SDTHeaderSize + 1
		}

		dsdt := drv.LookupTable("DSDT")
		if dsdt == nil || dsdt.Length != expDSDTLen {
			t.Errorf("[xsdt: %t] expected DSDT with length %d; got %+v", useXSDT, expDSDTLen, dsdt)
		}

		var resolver table.Resolver = drv
		if resolver.LookupTable("FACP") == nil {
			t.Errorf("[xsdt: %t] expected FACP to be resolvable", useXSDT)
		}

		expDSDTInfo := fmt.Sprintf("DSDT rev %d: %d bytes of AML\n", revision, expDSDTLen-table.SDTHeaderSize)
		if !strings.HasSuffix(out, expDSDTInfo) {
			t.Errorf("[xsdt: %t] expected output to end with %q; got:\n%s", useXSDT, expDSDTInfo, out)
		}
	}
}

func TestDriverInitWithoutDSDT(t *testing.T) {
	arena := withArena(t)
	writeTable(t, arena, 0xe9000, "RSDT", 0, pointers(false, 0xea000), true)
	writeTable(t, arena, 0xea000, "APIC", 0, make([]byte, 8), true)

	drv := &acpiDriver{rsdtAddr: 0xe9000}
	var buf bytes.Buffer
	if err := drv.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	if exp, got := "no DSDT found\n", buf.String(); !strings.HasSuffix(got, exp) {
		t.Fatalf("expected output to end with %q; got:\n%s", exp, got)
	}
}

func TestDriverInitErrors(t *testing.T) {
	t.Run("unmapped root table", func(t *testing.T) {
		withArena(t)
		drv := &acpiDriver{rsdtAddr: 0x100000}
		if err := drv.DriverInit(&bytes.Buffer{}); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("root table checksum mismatch", func(t *testing.T) {
		arena := withArena(t)
		writeTable(t, arena, 0xe9000, "RSDT", 0, pointers(false, 0xea000), false)

		drv := &acpiDriver{rsdtAddr: 0xe9000}
		if err := drv.DriverInit(&bytes.Buffer{}); err != errTableChecksumMismatch {
			t.Fatalf("expected errTableChecksumMismatch; got %v", err)
		}
	})

	t.Run("truncated header", func(t *testing.T) {
		arena := withArena(t)
		writeTable(t, arena, 0xe9000, "RSDT", 0, nil, true)
		binary.LittleEndian.PutUint32(arena.Mem[0x9000+4:], 8)

		drv := &acpiDriver{rsdtAddr: 0xe9000}
		if err := drv.DriverInit(&bytes.Buffer{}); err != errMalformedTable {
			t.Fatalf("expected errMalformedTable; got %v", err)
		}
	})

	t.Run("unmapped entry", func(t *testing.T) {
		arena := withArena(t)
		writeTable(t, arena, 0xe9000, "RSDT", 0, pointers(false, 0x200000), true)

		drv := &acpiDriver{rsdtAddr: 0xe9000}
		if err := drv.DriverInit(&bytes.Buffer{}); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestDriverMetadata(t *testing.T) {
	drv := &acpiDriver{}
	if exp, got := "ACPI", drv.DriverName(); got != exp {
		t.Fatalf("expected driver name %q; got %q", exp, got)
	}

	if major, minor, patch := drv.DriverVersion(); major != 0 || minor != 0 || patch != 1 {
		t.Fatalf("expected driver version 0.0.1; got %d.%d.%d", major, minor, patch)
	}
}
