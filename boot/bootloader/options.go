package bootloader

import "strings"

const (
	// DefaultKernelPath is the volume path of the kernel image when the
	// load options do not specify one.
	DefaultKernelPath = "kernel.elf"
)

// Options controls the behavior of the loader.
type Options struct {
	// KernelPath is the path of the kernel image on the boot volume.
	KernelPath string

	// MemoryMap enables printing of the firmware memory map before the
	// kernel is loaded.
	MemoryMap bool
}

// ParseCmdLine splits a load options string into key-value pairs. Pairs
// are separated by whitespace; a key without a value maps to itself.
func ParseCmdLine(cmdLine string) map[string]string {
	kvList := make(map[string]string)

	for _, pair := range strings.Fields(cmdLine) {
		kv := strings.Split(pair, "=")
		switch len(kv) {
		case 2: // foo=bar
			kvList[kv[0]] = kv[1]
		case 1: // nofoo
			kvList[kv[0]] = kv[0]
		}
	}

	return kvList
}

// ParseOptions builds an Options value from a load options string.
// Unrecognized keys are ignored.
func ParseOptions(cmdLine string) Options {
	opts := Options{
		KernelPath: DefaultKernelPath,
		MemoryMap:  true,
	}

	for k, v := range ParseCmdLine(cmdLine) {
		switch k {
		case "kernel":
			if v != k {
				opts.KernelPath = strings.TrimPrefix(strings.ReplaceAll(v, `\`, "/"), "/")
			}
		case "memmap":
			opts.MemoryMap = v != "off"
		}
	}

	return opts
}
