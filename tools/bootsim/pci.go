package main

import "gopherboot/device/pci"

// pciConfigSpace simulates the PCI configuration space. Reads of registers
// that were never written return all ones, which is what the hardware
// returns for absent functions.
type pciConfigSpace map[pci.ConfigAddress]uint32

// newPCIConfigSpace returns a configuration space with a Q35 host bridge at
// 0:0.0.
func newPCIConfigSpace() pciConfigSpace {
	return pciConfigSpace{
		pci.NewConfigAddress(0, 0, 0, 0x00): 0x29c0<<16 | 0x8086,
		pci.NewConfigAddress(0, 0, 0, 0x08): 0x06000000,
	}
}

// ReadConfig implements pci.ConfigSpace.
func (cs pciConfigSpace) ReadConfig(addr pci.ConfigAddress) uint32 {
	if v, ok := cs[addr]; ok {
		return v
	}
	return 0xffffffff
}

// WriteConfig implements pci.ConfigSpace.
func (cs pciConfigSpace) WriteConfig(addr pci.ConfigAddress, value uint32) {
	cs[addr] = value
}
