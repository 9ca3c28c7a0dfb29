//go:build !wasip1

// Package filtertest drives a filter module through the boundary lifecycle
// in-process, without a wasm runtime or host proxy. Tests create configs
// and per-stream filters exactly the way the host would, invoke the stage
// callbacks, and assert at the end that nothing outlived its destroy call.
package filtertest

import (
	"sync"
	"testing"

	"github.com/streamlet-dev/streamlet-sdk/filter"
	"github.com/streamlet-dev/streamlet-sdk/guest"
	"github.com/streamlet-dev/streamlet-sdk/hostapi"
)

// Harness stands in for the host process.
type Harness struct {
	d *guest.Dispatcher
}

// New builds a harness around a module.
func New(m guest.Module) *Harness {
	return &Harness{d: guest.NewDispatcher(m)}
}

// Dispatcher exposes the underlying dispatcher for tests that need the raw
// boundary operations.
func (h *Harness) Dispatcher() *guest.Dispatcher {
	return h.d
}

// MustConfig creates a filter-chain config and fails the test on refusal.
func (h *Harness) MustConfig(t *testing.T, name string, payload []byte) guest.Handle {
	t.Helper()
	handle := h.d.ConfigNew(filter.ConfigRef(1), name, payload)
	if handle == guest.NullHandle {
		t.Fatalf("config %q with payload %q was refused", name, payload)
	}
	return handle
}

// ConfigNew creates a config, returning NullHandle on refusal.
func (h *Harness) ConfigNew(name string, payload []byte) guest.Handle {
	return h.d.ConfigNew(filter.ConfigRef(1), name, payload)
}

// ConfigDestroy releases a config.
func (h *Harness) ConfigDestroy(handle guest.Handle) {
	h.d.ConfigDestroy(handle)
}

// MustStream attaches a filter instance for a synthetic stream and fails
// the test if the config declines it.
func (h *Harness) MustStream(t *testing.T, config guest.Handle, ref filter.StreamRef) *Stream {
	t.Helper()
	handle := h.d.FilterNew(config, ref)
	if handle == guest.NullHandle {
		t.Fatalf("filter instance for stream %#x was declined", uint64(ref))
	}
	return &Stream{h: h, handle: handle, ref: ref}
}

// AssertNoLeaks fails the test if any config, filter, or per-route config
// handle is still live.
func (h *Harness) AssertNoLeaks(t *testing.T) {
	t.Helper()
	configs, filters, routes := h.d.LiveObjects()
	if configs+filters+routes != 0 {
		t.Errorf("outstanding objects after teardown: %d configs, %d filters, %d per-route configs",
			configs, filters, routes)
	}
}

// Stream drives the six stage callbacks for one attached filter instance.
type Stream struct {
	h      *Harness
	handle guest.Handle
	ref    filter.StreamRef
}

// Ref returns the synthetic stream reference.
func (s *Stream) Ref() filter.StreamRef { return s.ref }

func (s *Stream) RequestHeaders(endOfStream bool) filter.RequestHeadersStatus {
	return s.h.d.RequestHeaders(s.handle, s.ref, endOfStream)
}

func (s *Stream) RequestBody(endOfStream bool) filter.RequestBodyStatus {
	return s.h.d.RequestBody(s.handle, s.ref, endOfStream)
}

func (s *Stream) RequestTrailers() filter.RequestTrailersStatus {
	return s.h.d.RequestTrailers(s.handle, s.ref)
}

func (s *Stream) ResponseHeaders(endOfStream bool) filter.ResponseHeadersStatus {
	return s.h.d.ResponseHeaders(s.handle, s.ref, endOfStream)
}

func (s *Stream) ResponseBody(endOfStream bool) filter.ResponseBodyStatus {
	return s.h.d.ResponseBody(s.handle, s.ref, endOfStream)
}

func (s *Stream) ResponseTrailers() filter.ResponseTrailersStatus {
	return s.h.d.ResponseTrailers(s.handle, s.ref)
}

// Close destroys the filter instance, as the host does at stream teardown.
func (s *Stream) Close() {
	s.h.d.FilterDestroy(s.handle)
}

// FakeHost is an in-memory implementation of the host accessor surface.
// Install it with hostapi.SetHost to test filters that read or mutate
// headers and bodies.
type FakeHost struct {
	mu      sync.Mutex
	headers map[hostapi.MapType]map[string][]byte
	bodies  map[hostapi.Direction][]byte
}

// NewFakeHost creates an empty FakeHost.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		headers: map[hostapi.MapType]map[string][]byte{
			hostapi.MapRequestHeaders:   {},
			hostapi.MapResponseHeaders:  {},
			hostapi.MapRequestTrailers:  {},
			hostapi.MapResponseTrailers: {},
		},
		bodies: map[hostapi.Direction][]byte{},
	}
}

// Install wires the fake into the hostapi package for the duration of the
// test.
func (f *FakeHost) Install(t *testing.T) {
	t.Helper()
	hostapi.SetHost(f)
	t.Cleanup(func() { hostapi.SetHost(nil) })
}

func (f *FakeHost) GetHeader(_ filter.StreamRef, m hostapi.MapType, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.headers[m][key]
	return append([]byte{}, v...), ok
}

func (f *FakeHost) SetHeader(_ filter.StreamRef, m hostapi.MapType, key string, value []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers[m][key] = append([]byte{}, value...)
	return true
}

func (f *FakeHost) RemoveHeader(_ filter.StreamRef, m hostapi.MapType, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.headers[m], key)
	return true
}

func (f *FakeHost) BodyChunk(_ filter.StreamRef, d hostapi.Direction) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.bodies[d]
	return append([]byte{}, v...), ok
}

func (f *FakeHost) AppendBody(_ filter.StreamRef, d hostapi.Direction, data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[d] = append(f.bodies[d], data...)
	return true
}
