package bootloader

import (
	"bytes"
	"gopherboot/boot/efi"
	"reflect"
	"testing"
)

func TestParseCmdLine(t *testing.T) {
	specs := []struct {
		cmdLine string
		exp     map[string]string
	}{
		{"", map[string]string{}},
		{"kernel=kernel.elf", map[string]string{"kernel": "kernel.elf"}},
		{"  memmap=off   quiet ", map[string]string{"memmap": "off", "quiet": "quiet"}},
		{"a=b=c d=e", map[string]string{"d": "e"}},
	}

	for specIndex, spec := range specs {
		if got := ParseCmdLine(spec.cmdLine); !reflect.DeepEqual(got, spec.exp) {
			t.Errorf("[spec %d] expected %v; got %v", specIndex, spec.exp, got)
		}
	}
}

func TestParseOptions(t *testing.T) {
	specs := []struct {
		cmdLine string
		exp     Options
	}{
		{"", Options{KernelPath: DefaultKernelPath, MemoryMap: true}},
		{"memmap=off", Options{KernelPath: DefaultKernelPath, MemoryMap: false}},
		{"memmap=on kernel=boot/kernel.elf", Options{KernelPath: "boot/kernel.elf", MemoryMap: true}},
		{`kernel=\EFI\gopher\kernel.elf`, Options{KernelPath: "EFI/gopher/kernel.elf", MemoryMap: true}},
		{"kernel unknown=1", Options{KernelPath: DefaultKernelPath, MemoryMap: true}},
	}

	for specIndex, spec := range specs {
		if got := ParseOptions(spec.cmdLine); got != spec.exp {
			t.Errorf("[spec %d] expected %+v; got %+v", specIndex, spec.exp, got)
		}
	}
}

func TestPrintMemoryMap(t *testing.T) {
	var buf bytes.Buffer
	printMemoryMap(&buf, []efi.MemoryDescriptor{
		{Type: efi.ConventionalMemory, PhysicalStart: 0, NumberOfPages: 2},
		{Type: efi.ReservedMemoryType, PhysicalStart: 0x2000, NumberOfPages: 1},
		{Type: efi.BootServicesData, PhysicalStart: 0x3000, NumberOfPages: 1},
	})

	exp := "system memory map:\n" +
		"\t[0x0000000000 - 0x0000002000], size:       8192, type: available\n" +
		"\t[0x0000002000 - 0x0000003000], size:       4096, type: reserved\n" +
		"\t[0x0000003000 - 0x0000004000], size:       4096, type: boot services data\n" +
		"available memory: 12Kb\n"

	if got := buf.String(); got != exp {
		t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
	}
}
