package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/streamlet-dev/streamlet-sdk/hostapi"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
module:
  path: filters/basic.wasm
  pool_size: 8
  max_memory_pages: 512
chains:
  - name: rate_limit
    config: '{"limit": 100}'
  - name: basic_filter
`))
	require.NoError(t, err)

	assert.Equal(t, "filters/basic.wasm", m.Module.Path)
	assert.Equal(t, 8, m.Module.PoolSize)
	assert.Equal(t, 512, m.Module.MaxMemoryPages)
	require.Len(t, m.Chains, 2)
	assert.Equal(t, "rate_limit", m.Chains[0].Name)
	assert.Equal(t, `{"limit": 100}`, m.Chains[0].Config)
	assert.Empty(t, m.Chains[1].Config)
}

func TestParseManifestRejectsMissingPath(t *testing.T) {
	_, err := ParseManifest([]byte(`
module:
  pool_size: 2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating manifest")
}

func TestParseManifestRejectsMalformedYAML(t *testing.T) {
	_, err := ParseManifest([]byte("module: [unclosed"))
	require.Error(t, err)
}

func TestParseManifestRejectsUnnamedChain(t *testing.T) {
	_, err := ParseManifest([]byte(`
module:
  path: f.wasm
chains:
  - config: '{}'
`))
	require.Error(t, err)
}

func TestManifestOptionsSkipZeroValues(t *testing.T) {
	m := &Manifest{Module: ModuleConfig{Path: "f.wasm"}}
	assert.Empty(t, m.options())

	m.Module.PoolSize = 2
	m.Module.Interpreter = true
	assert.Len(t, m.options(), 2)
}

func TestSplitDescriptor(t *testing.T) {
	ptr, length := splitDescriptor(0xDEADBEEF_00000010)
	assert.Equal(t, uint32(0xDEADBEEF), ptr)
	assert.Equal(t, uint32(0x10), length)

	ptr, length = splitDescriptor(0)
	assert.Zero(t, ptr)
	assert.Zero(t, length)
}

func TestStreamStateHeaders(t *testing.T) {
	s := newStreamState()

	_, ok := s.getHeader(hostapi.MapRequestHeaders, "x-token")
	assert.False(t, ok)

	require.True(t, s.setHeader(hostapi.MapRequestHeaders, "x-token", []byte("abc")))
	v, ok := s.getHeader(hostapi.MapRequestHeaders, "x-token")
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), v)

	// Maps are independent per type.
	_, ok = s.getHeader(hostapi.MapResponseHeaders, "x-token")
	assert.False(t, ok)

	require.True(t, s.removeHeader(hostapi.MapRequestHeaders, "x-token"))
	_, ok = s.getHeader(hostapi.MapRequestHeaders, "x-token")
	assert.False(t, ok)
}

func TestStreamStateRejectsUnknownMapType(t *testing.T) {
	s := newStreamState()
	assert.False(t, s.setHeader(hostapi.MapType(42), "k", []byte("v")))
	assert.False(t, s.removeHeader(hostapi.MapType(42), "k"))
	_, ok := s.getHeader(hostapi.MapType(42), "k")
	assert.False(t, ok)
}

func TestStreamStateBodies(t *testing.T) {
	s := newStreamState()

	_, ok := s.bodyChunk(hostapi.DirectionRequest)
	assert.False(t, ok)

	require.True(t, s.appendBody(hostapi.DirectionRequest, []byte("hello ")))
	require.True(t, s.appendBody(hostapi.DirectionRequest, []byte("world")))

	chunk, ok := s.bodyChunk(hostapi.DirectionRequest)
	require.True(t, ok)
	assert.Equal(t, []byte("hello world"), chunk)

	// Directions stay separate.
	_, ok = s.bodyChunk(hostapi.DirectionResponse)
	assert.False(t, ok)
}

func TestStreamStateSeeding(t *testing.T) {
	s := newStreamState()
	s.SetHeader(hostapi.MapRequestHeaders, "host", []byte("example.com"))
	s.SetBody(hostapi.DirectionResponse, []byte("payload"))

	v, ok := s.Header(hostapi.MapRequestHeaders, "host")
	require.True(t, ok)
	assert.Equal(t, []byte("example.com"), v)
	assert.Equal(t, []byte("payload"), s.Body(hostapi.DirectionResponse))

	// Reads return copies; mutating one must not leak into the state.
	v[0] = 'X'
	v2, _ := s.Header(hostapi.MapRequestHeaders, "host")
	assert.Equal(t, []byte("example.com"), v2)
}

func TestStreamRegistryLifecycle(t *testing.T) {
	r := newStreamRegistry()

	assert.Nil(t, r.lookup(7))

	s := r.attach(7)
	require.NotNil(t, s)
	assert.Same(t, s, r.lookup(7))

	r.detach(7)
	assert.Nil(t, r.lookup(7))
}

func TestZapLevelMapping(t *testing.T) {
	tests := []struct {
		level uint32
		want  zapcore.Level
	}{
		{0, zapcore.DebugLevel},
		{1, zapcore.DebugLevel},
		{2, zapcore.InfoLevel},
		{3, zapcore.WarnLevel},
		{4, zapcore.ErrorLevel},
		{5, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, zapLevel(tt.level))
	}
}
