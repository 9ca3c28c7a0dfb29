//go:build wasip1

package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// MaxTotalAllocations caps the memory the module may hold pinned for the
// host at any one time. Prevents unbounded growth of linear memory when a
// host fails to free returned buffers.
const MaxTotalAllocations = 64 * 1024 * 1024 // 64 MB

// memoryManager tracks every buffer the module hands to the host. Holding
// the slice reference pins it against the Go GC until the host frees it
// through the deallocate export, or until FreeAllTracked during panic
// recovery.
var memoryManager = struct {
	sync.Mutex
	ptrs           map[uint32][]byte
	totalAllocated int
}{
	ptrs: make(map[uint32][]byte),
}

// allocate reserves module memory the host can write into or read from.
// Exported so the host can stage call arguments in guest memory.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.totalAllocated+int(size) > MaxTotalAllocations {
		panic(fmt.Sprintf("abi: allocation limit exceeded (requested %d, held %d, limit %d)",
			size, memoryManager.totalAllocated, MaxTotalAllocations))
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))

	memoryManager.ptrs[ptr] = buf
	memoryManager.totalAllocated += int(size)

	return ptr
}

// deallocate releases a buffer previously returned by allocate or handed to
// the host via OwnedBuffer. Untracked pointers are ignored so the call is
// idempotent; accounting uses the stored length, not the caller's.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, size uint32) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	stored, exists := memoryManager.ptrs[ptr]
	if !exists {
		return
	}

	delete(memoryManager.ptrs, ptr)
	memoryManager.totalAllocated -= len(stored)
	if memoryManager.totalAllocated < 0 {
		memoryManager.totalAllocated = 0
	}
}

// FreeAllTracked drops every pinned buffer. Called during panic recovery at
// the boundary so an aborted call cannot leak pinned memory.
func FreeAllTracked() {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	clear(memoryManager.ptrs)
	memoryManager.totalAllocated = 0
}

// OwnedBuffer copies data into a pinned buffer the module owns and returns
// its descriptor. The buffer stays valid until the host frees it through
// the deallocate export. Used for every byte payload the module returns.
func OwnedBuffer(data []byte) Descriptor {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data))
	ptr := allocate(size)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size)
	copy(dst, data)
	return NewDescriptor(ptr, size)
}

// BorrowedBuffer exposes a module slice to the host for the duration of a
// single synchronous host call, with no copy and no pinning. The descriptor
// must not be retained by the host past the call's return.
func BorrowedBuffer(data []byte) Descriptor {
	if len(data) == 0 {
		return 0
	}
	ptr := uint32(uintptr(unsafe.Pointer(&data[0])))
	return NewDescriptor(ptr, uint32(len(data)))
}

// View reinterprets the descriptor as a borrowed byte slice, with no copy
// and no allocation. The slice aliases host-owned memory and is valid only
// for the duration of the boundary call that supplied the descriptor.
func View(d Descriptor) []byte {
	ptr, length := d.Split()
	if length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}

// Copy reads the descriptor's bytes into freshly allocated module-owned
// storage. Use when data must outlive the current boundary call.
func Copy(d Descriptor) []byte {
	v := View(d)
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// TrackedBytes reports the total pinned bytes currently held for the host.
func TrackedBytes() int {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return memoryManager.totalAllocated
}
