package guest

import "sync"

// Handle is the opaque identity token the runtime hands to the host in
// place of a raw pointer. It encodes an arena slot index and a generation
// counter, so a stale or fabricated handle is detected instead of
// dereferencing freed state. Zero is the null sentinel and is never issued.
type Handle uint64

// NullHandle is the across-the-boundary "no object" value.
const NullHandle Handle = 0

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// handleTable is a generation-checked arena. Slots are reused after
// removal with a bumped generation, invalidating any handle that still
// points at the old occupant.
type handleTable[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
}

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(index+1)<<32 | uint64(gen))
}

func splitHandle(h Handle) (index, gen uint32, ok bool) {
	index = uint32(uint64(h) >> 32)
	if index == 0 {
		return 0, 0, false
	}
	return index - 1, uint32(h), true
}

// Put stores v and returns its handle.
func (t *handleTable[T]) Put(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot[T]{gen: 1})
		index = uint32(len(t.slots) - 1)
	}

	s := &t.slots[index]
	s.live = true
	s.val = v
	return makeHandle(index, s.gen)
}

// Get returns the value behind h, or false for null, stale, or never-issued
// handles.
func (t *handleTable[T]) Get(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	index, gen, ok := splitHandle(h)
	if !ok || index >= uint32(len(t.slots)) {
		return zero, false
	}
	s := &t.slots[index]
	if !s.live || s.gen != gen {
		return zero, false
	}
	return s.val, true
}

// Remove invalidates h and returns the value it held. A second Remove of
// the same handle fails: the generation has already moved on.
func (t *handleTable[T]) Remove(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	index, gen, ok := splitHandle(h)
	if !ok || index >= uint32(len(t.slots)) {
		return zero, false
	}
	s := &t.slots[index]
	if !s.live || s.gen != gen {
		return zero, false
	}

	v := s.val
	s.val = zero
	s.live = false
	s.gen++
	t.free = append(t.free, index)
	return v, true
}

// Live returns the number of occupied slots.
func (t *handleTable[T]) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for i := range t.slots {
		if t.slots[i].live {
			n++
		}
	}
	return n
}
