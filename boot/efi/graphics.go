package efi

// GraphicsPixelFormat is the pixel format reported by the graphics output
// protocol.
type GraphicsPixelFormat uint32

// The graphics output protocol pixel formats.
const (
	PixelRedGreenBlueReserved8BitPerColor GraphicsPixelFormat = iota
	PixelBlueGreenRedReserved8BitPerColor
	PixelBitMask
	PixelBltOnly
)

// GraphicsMode describes the active graphics output mode.
type GraphicsMode struct {
	FrameBufferBase uintptr
	FrameBufferSize uint64

	HorizontalResolution uint32
	VerticalResolution   uint32
	PixelsPerScanLine    uint32

	PixelFormat GraphicsPixelFormat
}
