package kfmt

import "io"

// ringBufferSize defines size of the ring buffer that buffers Printf output
// until an output sink is registered. It holds a full 80x25 console screen
// plus the loader log. The ring buffer size must always be a power of 2.
const ringBufferSize = 4096

// ringBuffer keeps the last ringBufferSize bytes written to it. Once full,
// each write discards the oldest bytes.
type ringBuffer struct {
	buffer [ringBufferSize]byte

	// head is the index of the oldest unread byte and count the number
	// of unread bytes.
	head, count int
}

// Len returns the number of unread bytes.
func (rb *ringBuffer) Len() int {
	return rb.count
}

// Reset discards all unread bytes.
func (rb *ringBuffer) Reset() {
	rb.head, rb.count = 0, 0
}

// Write implements io.Writer. It never fails.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[(rb.head+rb.count)&(ringBufferSize-1)] = b
		if rb.count == ringBufferSize {
			rb.head = (rb.head + 1) & (ringBufferSize - 1)
			continue
		}
		rb.count++
	}

	return len(p), nil
}

// Read implements io.Reader. Each call copies at most one contiguous chunk
// of the buffer so a wrapped buffer is drained in two calls.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.count == 0 {
		return 0, io.EOF
	}

	n := min(rb.count, ringBufferSize-rb.head, len(p))
	copy(p, rb.buffer[rb.head:rb.head+n])
	rb.head = (rb.head + n) & (ringBufferSize - 1)
	rb.count -= n

	return n, nil
}
