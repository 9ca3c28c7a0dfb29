package hostapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamlet-dev/streamlet-sdk/filter"
)

// mapHost backs the accessor surface with plain maps.
type mapHost struct {
	headers map[MapType]map[string][]byte
	bodies  map[Direction][]byte
}

func newMapHost() *mapHost {
	return &mapHost{
		headers: map[MapType]map[string][]byte{
			MapRequestHeaders:   {},
			MapResponseHeaders:  {},
			MapRequestTrailers:  {},
			MapResponseTrailers: {},
		},
		bodies: map[Direction][]byte{},
	}
}

func (h *mapHost) GetHeader(_ filter.StreamRef, m MapType, key string) ([]byte, bool) {
	v, ok := h.headers[m][key]
	return v, ok
}

func (h *mapHost) SetHeader(_ filter.StreamRef, m MapType, key string, value []byte) bool {
	h.headers[m][key] = append([]byte{}, value...)
	return true
}

func (h *mapHost) RemoveHeader(_ filter.StreamRef, m MapType, key string) bool {
	delete(h.headers[m], key)
	return true
}

func (h *mapHost) BodyChunk(_ filter.StreamRef, d Direction) ([]byte, bool) {
	v, ok := h.bodies[d]
	return v, ok
}

func (h *mapHost) AppendBody(_ filter.StreamRef, d Direction, data []byte) bool {
	h.bodies[d] = append(h.bodies[d], data...)
	return true
}

func withHost(t *testing.T) *mapHost {
	t.Helper()
	h := newMapHost()
	SetHost(h)
	t.Cleanup(func() { SetHost(nil) })
	return h
}

func TestHeaderRoundTrip(t *testing.T) {
	withHost(t)
	stream := filter.StreamRef(9)

	require.True(t, SetHeader(stream, MapRequestHeaders, "x-filter", []byte("basic")))

	v, ok := GetHeader(stream, MapRequestHeaders, "x-filter")
	require.True(t, ok)
	assert.Equal(t, []byte("basic"), v)

	// Maps are independent.
	_, ok = GetHeader(stream, MapResponseHeaders, "x-filter")
	assert.False(t, ok)

	require.True(t, RemoveHeader(stream, MapRequestHeaders, "x-filter"))
	_, ok = GetHeader(stream, MapRequestHeaders, "x-filter")
	assert.False(t, ok)
}

func TestBodyAppendAndRead(t *testing.T) {
	withHost(t)
	stream := filter.StreamRef(9)

	_, ok := BodyChunk(stream, DirectionRequest)
	assert.False(t, ok, "no body before anything is buffered")

	require.True(t, AppendBody(stream, DirectionRequest, []byte("hello ")))
	require.True(t, AppendBody(stream, DirectionRequest, []byte("world")))

	body, ok := BodyChunk(stream, DirectionRequest)
	require.True(t, ok)
	assert.Equal(t, []byte("hello world"), body)
}

func TestDefaultStubDeclinesEverything(t *testing.T) {
	SetHost(nil)

	_, ok := GetHeader(1, MapRequestHeaders, "any")
	assert.False(t, ok)
	assert.False(t, SetHeader(1, MapRequestHeaders, "any", []byte("v")))
	assert.False(t, RemoveHeader(1, MapRequestHeaders, "any"))
	_, ok = BodyChunk(1, DirectionResponse)
	assert.False(t, ok)
	assert.False(t, AppendBody(1, DirectionResponse, []byte("v")))
}
