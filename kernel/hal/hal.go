// Package hal probes for hardware and initializes the matching drivers.
package hal

import (
	"bytes"
	"gopherboot/device"
	"gopherboot/kernel/kfmt"
)

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices managedDevices
	strBuf  bytes.Buffer
)

// ActiveDrivers returns the drivers that were successfully initialized by
// DetectHardware.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers
}

// DetectHardware probes for hardware devices in detection order and
// initializes the appropriate drivers.
func DetectHardware() {
	probe(device.DriverList())
}

// probe executes the probe function for each driver and keeps track of the
// drivers that were initialized successfully. Driver output is prefixed with
// the driver name and version.
func probe(driverInfoList device.DriverInfoList) {
	var w = kfmt.PrefixWriter{Sink: kfmt.GetOutputSink()}

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		devices.activeDrivers = append(devices.activeDrivers, drv)
	}
}
