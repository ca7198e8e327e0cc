package main

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	stubKernelBase  = 0x100000
	stubKernelEntry = stubKernelBase

	elfHeaderSize  = 64
	progHeaderSize = 56
)

// stubKernelCode parks the CPU: hlt; jmp $-3.
var stubKernelCode = []byte{0xf4, 0xeb, 0xfd}

// stubKernelImage returns an ELF64 image with a text segment holding
// stubKernelCode and a zero-filled data segment. The simulator uses it when
// no kernel image is supplied; its code is never executed.
func stubKernelImage() ([]byte, error) {
	var (
		buf     bytes.Buffer
		dataOff = uint64(elfHeaderSize + 2*progHeaderSize)
		hdr     = elf.Header64{
			Type:      uint16(elf.ET_EXEC),
			Machine:   uint16(elf.EM_X86_64),
			Version:   uint32(elf.EV_CURRENT),
			Entry:     stubKernelEntry,
			Phoff:     elfHeaderSize,
			Ehsize:    elfHeaderSize,
			Phentsize: progHeaderSize,
			Phnum:     2,
			Shentsize: 64,
		}
		progs = []elf.Prog64{
			{
				Type:   uint32(elf.PT_LOAD),
				Flags:  uint32(elf.PF_R | elf.PF_X),
				Off:    dataOff,
				Vaddr:  stubKernelBase,
				Paddr:  stubKernelBase,
				Filesz: uint64(len(stubKernelCode)),
				Memsz:  uint64(len(stubKernelCode)),
				Align:  0x1000,
			},
			{
				Type:  uint32(elf.PT_LOAD),
				Flags: uint32(elf.PF_R | elf.PF_W),
				Off:   dataOff + uint64(len(stubKernelCode)),
				Vaddr: stubKernelBase + 0x1000,
				Paddr: stubKernelBase + 0x1000,
				Memsz: 0x2000,
				Align: 0x1000,
			},
		}
	)

	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	for _, v := range []interface{}{&hdr, progs, stubKernelCode} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, errors.Wrap(err, "encoding stub kernel")
		}
	}

	return buf.Bytes(), nil
}
