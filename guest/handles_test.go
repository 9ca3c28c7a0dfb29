package guest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTablePutGetRemove(t *testing.T) {
	var table handleTable[string]

	h := table.Put("config")
	require.NotEqual(t, NullHandle, h)

	v, ok := table.Get(h)
	require.True(t, ok)
	assert.Equal(t, "config", v)

	v, ok = table.Remove(h)
	require.True(t, ok)
	assert.Equal(t, "config", v)

	_, ok = table.Get(h)
	assert.False(t, ok, "removed handle must be dead")
}

func TestHandleTableDoubleRemove(t *testing.T) {
	var table handleTable[int]

	h := table.Put(7)
	_, ok := table.Remove(h)
	require.True(t, ok)

	_, ok = table.Remove(h)
	assert.False(t, ok, "second remove of the same handle must fail")
}

func TestHandleTableGenerationInvalidatesReusedSlot(t *testing.T) {
	var table handleTable[int]

	first := table.Put(1)
	_, ok := table.Remove(first)
	require.True(t, ok)

	// The slot is reused, but the old handle must not resolve to the
	// new occupant.
	second := table.Put(2)
	assert.NotEqual(t, first, second)

	_, ok = table.Get(first)
	assert.False(t, ok, "stale handle must not see the reused slot")

	v, ok := table.Get(second)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestHandleTableRejectsNullAndFabricatedHandles(t *testing.T) {
	var table handleTable[int]
	table.Put(1)

	_, ok := table.Get(NullHandle)
	assert.False(t, ok)

	_, ok = table.Get(Handle(0xFFFF_0000_0000_0001))
	assert.False(t, ok, "out-of-range slot index must miss")

	_, ok = table.Remove(NullHandle)
	assert.False(t, ok)
}

func TestHandleTableLive(t *testing.T) {
	var table handleTable[int]
	assert.Zero(t, table.Live())

	a := table.Put(1)
	b := table.Put(2)
	assert.Equal(t, 2, table.Live())

	table.Remove(a)
	assert.Equal(t, 1, table.Live())
	table.Remove(b)
	assert.Zero(t, table.Live())
}

func TestHandleTableConcurrentUse(t *testing.T) {
	var table handleTable[int]
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h := table.Put(n)
			v, ok := table.Get(h)
			assert.True(t, ok)
			assert.Equal(t, n, v)
			_, ok = table.Remove(h)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, table.Live())
}
