// Package mem provides raw memory helpers for code that runs before the Go
// allocator is usable.
package mem

// Size represents a memory block size in bytes.
type Size uintptr

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
)
