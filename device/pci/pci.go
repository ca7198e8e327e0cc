// Package pci provides access to the PCI configuration space through the
// legacy CONFIG_ADDRESS/CONFIG_DATA I/O ports.
package pci

import "gopherboot/kernel/cpu"

const (
	configAddressPort uint16 = 0xcf8
	configDataPort    uint16 = 0xcfc

	// VendorNone is read back from the vendor register of an empty slot.
	VendorNone uint16 = 0xffff
)

var (
	// The following functions are mocked by tests.
	portWriteDwordFn = cpu.PortWriteDword
	portReadDwordFn  = cpu.PortReadDword
)

// ConfigAddress is the value written to CONFIG_ADDRESS to select a
// configuration space register. Its layout is:
//
//	bit 31     enable
//	bits 16-23 bus
//	bits 11-15 device
//	bits 8-10  function
//	bits 0-7   register offset (dword aligned)
type ConfigAddress uint32

// NewConfigAddress encodes the address of register reg of the given
// bus/device/function.
func NewConfigAddress(bus, device, function, reg uint8) ConfigAddress {
	return ConfigAddress(1<<31 |
		uint32(bus)<<16 |
		uint32(device&0x1f)<<11 |
		uint32(function&0x7)<<8 |
		uint32(reg&0xfc))
}

// Bus returns the bus number encoded in the address.
func (a ConfigAddress) Bus() uint8 { return uint8(a >> 16) }

// Device returns the device number encoded in the address.
func (a ConfigAddress) Device() uint8 { return uint8(a>>11) & 0x1f }

// Function returns the function number encoded in the address.
func (a ConfigAddress) Function() uint8 { return uint8(a>>8) & 0x7 }

// Register returns the register offset encoded in the address.
func (a ConfigAddress) Register() uint8 { return uint8(a) }

// ConfigSpace is implemented by objects that can read and write PCI
// configuration registers.
type ConfigSpace interface {
	ReadConfig(addr ConfigAddress) uint32
	WriteConfig(addr ConfigAddress, value uint32)
}

// PortConfigSpace accesses the configuration space using port I/O.
type PortConfigSpace struct{}

// ReadConfig implements ConfigSpace.
func (PortConfigSpace) ReadConfig(addr ConfigAddress) uint32 {
	portWriteDwordFn(configAddressPort, uint32(addr))
	return portReadDwordFn(configDataPort)
}

// WriteConfig implements ConfigSpace.
func (PortConfigSpace) WriteConfig(addr ConfigAddress, value uint32) {
	portWriteDwordFn(configAddressPort, uint32(addr))
	portWriteDwordFn(configDataPort, value)
}

// Device identifies a PCI function.
type Device struct {
	Bus      uint8
	Device   uint8
	Function uint8
}

func (d Device) read(cs ConfigSpace, reg uint8) uint32 {
	return cs.ReadConfig(NewConfigAddress(d.Bus, d.Device, d.Function, reg))
}

// VendorID returns the vendor identifier of the device.
func (d Device) VendorID(cs ConfigSpace) uint16 {
	return uint16(d.read(cs, 0x00))
}

// DeviceID returns the device identifier of the device.
func (d Device) DeviceID(cs ConfigSpace) uint16 {
	return uint16(d.read(cs, 0x00) >> 16)
}

// VendorName returns a human readable name for a PCI vendor identifier.
func VendorName(vendorID uint16) string {
	switch vendorID {
	case 0x8086:
		return "Intel"
	case 0x1022:
		return "AMD"
	case 0x10de:
		return "NVIDIA Corporation"
	default:
		return "Unknown"
	}
}
