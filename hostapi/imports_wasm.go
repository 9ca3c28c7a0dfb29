//go:build wasip1

package hostapi

import (
	"github.com/streamlet-dev/streamlet-sdk/filter"
	"github.com/streamlet-dev/streamlet-sdk/internal/abi"
)

// Fetching imports write into a module-supplied buffer descriptor and
// return the value's full length, or -1 when absent. A result larger than
// the buffer means "grow and retry". Key/value descriptors the module
// passes are borrowed for the call only.
//
//go:wasmimport streamlet_host get_header
//nolint:revive // snake_case matches the host import convention
func host_get_header(stream uint64, mapType uint32, key uint64, out uint64) int64

//go:wasmimport streamlet_host set_header
//nolint:revive // snake_case matches the host import convention
func host_set_header(stream uint64, mapType uint32, key uint64, value uint64) uint32

//go:wasmimport streamlet_host remove_header
//nolint:revive // snake_case matches the host import convention
func host_remove_header(stream uint64, mapType uint32, key uint64) uint32

//go:wasmimport streamlet_host get_body_chunk
//nolint:revive // snake_case matches the host import convention
func host_get_body_chunk(stream uint64, direction uint32, out uint64) int64

//go:wasmimport streamlet_host append_body
//nolint:revive // snake_case matches the host import convention
func host_append_body(stream uint64, direction uint32, data uint64) uint32

type wasmAccessors struct{}

var impl accessors = wasmAccessors{}

// fetch drives the write-into-buffer protocol shared by the value-returning
// imports, growing the buffer once when the first attempt was too small.
func fetch(call func(out abi.Descriptor) int64) ([]byte, bool) {
	buf := make([]byte, initialValueCap)
	n := call(abi.BorrowedBuffer(buf))
	if n < 0 {
		return nil, false
	}
	if int(n) > len(buf) {
		buf = make([]byte, n)
		n = call(abi.BorrowedBuffer(buf))
		if n < 0 {
			return nil, false
		}
	}
	return buf[:n], true
}

func (wasmAccessors) getHeader(stream filter.StreamRef, m MapType, key string) ([]byte, bool) {
	keyBytes := []byte(key)
	return fetch(func(out abi.Descriptor) int64 {
		return host_get_header(uint64(stream), uint32(m), uint64(abi.BorrowedBuffer(keyBytes)), uint64(out))
	})
}

func (wasmAccessors) setHeader(stream filter.StreamRef, m MapType, key string, value []byte) bool {
	keyBytes := []byte(key)
	return host_set_header(uint64(stream), uint32(m),
		uint64(abi.BorrowedBuffer(keyBytes)), uint64(abi.BorrowedBuffer(value))) != 0
}

func (wasmAccessors) removeHeader(stream filter.StreamRef, m MapType, key string) bool {
	keyBytes := []byte(key)
	return host_remove_header(uint64(stream), uint32(m), uint64(abi.BorrowedBuffer(keyBytes))) != 0
}

func (wasmAccessors) bodyChunk(stream filter.StreamRef, d Direction) ([]byte, bool) {
	return fetch(func(out abi.Descriptor) int64 {
		return host_get_body_chunk(uint64(stream), uint32(d), uint64(out))
	})
}

func (wasmAccessors) appendBody(stream filter.StreamRef, d Direction, data []byte) bool {
	return host_append_body(uint64(stream), uint32(d), uint64(abi.BorrowedBuffer(data))) != 0
}
