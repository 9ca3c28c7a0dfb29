// Package abi implements the flat descriptor types that cross the host
// boundary and the linear-memory bookkeeping behind them.
//
// Everything the host and module exchange is either a scalar, an opaque
// handle, or a Descriptor: a (pointer, length) pair packed into a single
// uint64. Descriptors are views, not owners. Who owns the bytes behind a
// descriptor, and for how long, is fixed by the call contract of the
// function it crosses in; this package only does the reinterpretation.
package abi

import "fmt"

// Descriptor identifies a byte range in linear memory. The pointer lives in
// the high 32 bits, the length in the low 32 bits. The zero Descriptor is
// the valid empty view: a null pointer with zero length is not an error.
type Descriptor uint64

// NewDescriptor packs a pointer and length into a Descriptor.
// Panics on a null pointer with a non-zero length, which can never describe
// readable memory and always indicates a corrupted caller.
func NewDescriptor(ptr, length uint32) Descriptor {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with non-zero length (%d)", length))
	}
	return Descriptor(uint64(ptr)<<32 | uint64(length))
}

// Ptr returns the pointer half of the descriptor.
func (d Descriptor) Ptr() uint32 {
	return uint32(d >> 32)
}

// Len returns the length half of the descriptor.
func (d Descriptor) Len() uint32 {
	return uint32(d)
}

// IsEmpty reports whether the descriptor describes zero bytes.
func (d Descriptor) IsEmpty() bool {
	return d.Len() == 0
}

// Split unpacks the descriptor back into its raw pointer and length.
// Split(NewDescriptor(p, n)) returns exactly (p, n).
func (d Descriptor) Split() (ptr, length uint32) {
	ptr, length = d.Ptr(), d.Len()
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with non-zero length (%d)", length))
	}
	return ptr, length
}

// HeaderDescriptor is one key/value header pair as two descriptors.
// Both views follow the same borrow rules as the descriptors themselves.
type HeaderDescriptor struct {
	Key   Descriptor
	Value Descriptor
}

// NewHeaderDescriptor pairs a key and value descriptor.
func NewHeaderDescriptor(key, value Descriptor) HeaderDescriptor {
	return HeaderDescriptor{Key: key, Value: value}
}
