package kfmt

import "io"

// ringBufferSize is the capacity of the early output buffer. It must be a
// power of 2.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize-1 bytes written to it. Once
// full, each write overwrites the oldest byte.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write appends p to the buffer, dropping the oldest bytes if needed.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.wIndex == rb.rIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read drains up to len(p) buffered bytes into p. It returns io.EOF once the
// buffer is empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	// Copy the contiguous run that starts at rIndex; a wrapped buffer is
	// drained over two calls.
	end := rb.wIndex
	if rb.rIndex > rb.wIndex {
		end = ringBufferSize
	}

	n := copy(p, rb.buffer[rb.rIndex:end])
	rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)
	return n, nil
}
