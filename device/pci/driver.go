package pci

import (
	"gopherboot/device"
	"gopherboot/kernel"
	"gopherboot/kernel/kfmt"
	"io"
)

// activeConfigSpace is the accessor used by the probe function.
var activeConfigSpace ConfigSpace

// SetConfigSpace selects the configuration space accessor used when probing
// for the PCI host bridge. Passing nil disables PCI detection.
func SetConfigSpace(cs ConfigSpace) {
	activeConfigSpace = cs
}

// hostBridgeDriver reports the identity of the PCI host bridge (0:0.0).
type hostBridgeDriver struct {
	vendorID uint16
	deviceID uint16
}

// DriverName returns the name of this driver.
func (*hostBridgeDriver) DriverName() string {
	return "pci"
}

// DriverVersion returns the version of this driver.
func (*hostBridgeDriver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (drv *hostBridgeDriver) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "host bridge 00:00.0 vendor 0x%4x (%s) device 0x%4x\n",
		drv.vendorID,
		VendorName(drv.vendorID),
		drv.deviceID,
	)
	return nil
}

func probeForHostBridge() device.Driver {
	if activeConfigSpace == nil {
		return nil
	}

	hostBridge := Device{}
	vendorID := hostBridge.VendorID(activeConfigSpace)
	if vendorID == VendorNone {
		return nil
	}

	return &hostBridgeDriver{
		vendorID: vendorID,
		deviceID: hostBridge.DeviceID(activeConfigSpace),
	}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderBus,
		Probe: probeForHostBridge,
	})
}
