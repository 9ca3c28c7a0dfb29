//go:build wasip1

package abi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateDeallocate(t *testing.T) {
	FreeAllTracked()

	size := uint32(1024)
	ptr := allocate(size)
	require.NotZero(t, ptr, "allocate returned null")
	assert.Equal(t, int(size), TrackedBytes())

	deallocate(ptr, size)
	assert.Zero(t, TrackedBytes())

	// Deallocating an untracked pointer is a no-op.
	deallocate(ptr, size)
	assert.Zero(t, TrackedBytes())
}

func TestOwnedBufferRoundTrip(t *testing.T) {
	FreeAllTracked()

	data := []byte("x-filter: basic")
	d := OwnedBuffer(data)
	require.False(t, d.IsEmpty())

	// The view reads back exactly the bytes that went in.
	assert.Equal(t, data, View(d))
	assert.Equal(t, len(data), TrackedBytes())

	deallocate(d.Ptr(), d.Len())
	assert.Zero(t, TrackedBytes())
}

func TestOwnedBufferEmpty(t *testing.T) {
	FreeAllTracked()

	d := OwnedBuffer(nil)
	assert.True(t, d.IsEmpty())
	assert.Zero(t, TrackedBytes())
}

func TestCopyDetachesFromSource(t *testing.T) {
	FreeAllTracked()

	src := []byte("mutable payload")
	d := OwnedBuffer(src)
	defer deallocate(d.Ptr(), d.Len())

	got := Copy(d)
	assert.Equal(t, src, got)

	// Mutating the pinned buffer must not affect the copy.
	View(d)[0] = 'X'
	assert.Equal(t, byte('m'), got[0])
}

func TestFreeAllTracked(t *testing.T) {
	FreeAllTracked()

	OwnedBuffer([]byte("one"))
	OwnedBuffer([]byte("two"))
	require.NotZero(t, TrackedBytes())

	FreeAllTracked()
	assert.Zero(t, TrackedBytes())
}

func TestConcurrentOwnedBuffers(t *testing.T) {
	FreeAllTracked()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := OwnedBuffer([]byte("concurrent"))
			deallocate(d.Ptr(), d.Len())
		}()
	}
	wg.Wait()

	assert.Zero(t, TrackedBytes())
}
