package host

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/streamlet-dev/streamlet-sdk/hostapi"
)

// StreamState is the host-side view of one HTTP exchange: the header maps
// and body buffers the module's accessor imports operate on. Callers seed
// it before driving callbacks and read the mutations back afterwards.
type StreamState struct {
	mu      sync.Mutex
	headers map[hostapi.MapType]map[string][]byte
	bodies  map[hostapi.Direction][]byte
}

func newStreamState() *StreamState {
	return &StreamState{
		headers: map[hostapi.MapType]map[string][]byte{
			hostapi.MapRequestHeaders:   {},
			hostapi.MapResponseHeaders:  {},
			hostapi.MapRequestTrailers:  {},
			hostapi.MapResponseTrailers: {},
		},
		bodies: map[hostapi.Direction][]byte{},
	}
}

// SetHeader seeds or overwrites a header before the module sees the map.
func (s *StreamState) SetHeader(m hostapi.MapType, key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[m][key] = append([]byte{}, value...)
}

// Header reads a header value, reflecting any module mutations.
func (s *StreamState) Header(m hostapi.MapType, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.headers[m][key]
	if !ok {
		return nil, false
	}
	return append([]byte{}, v...), true
}

// SetBody replaces a direction's buffered body.
func (s *StreamState) SetBody(d hostapi.Direction, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[d] = append([]byte{}, data...)
}

// Body reads a direction's buffered body.
func (s *StreamState) Body(d hostapi.Direction) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte{}, s.bodies[d]...)
}

func (s *StreamState) getHeader(m hostapi.MapType, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hm, ok := s.headers[m]
	if !ok {
		return nil, false
	}
	v, ok := hm[key]
	return v, ok
}

func (s *StreamState) setHeader(m hostapi.MapType, key string, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hm, ok := s.headers[m]
	if !ok {
		return false
	}
	hm[key] = append([]byte{}, value...)
	return true
}

func (s *StreamState) removeHeader(m hostapi.MapType, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hm, ok := s.headers[m]
	if !ok {
		return false
	}
	delete(hm, key)
	return true
}

func (s *StreamState) bodyChunk(d hostapi.Direction) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.bodies[d]
	return v, ok
}

func (s *StreamState) appendBody(d hostapi.Direction, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[d] = append(s.bodies[d], data...)
	return true
}

// streamRegistry maps stream references to their exchange state. Accessor
// imports carry the reference explicitly, so resolution is a plain lookup.
type streamRegistry struct {
	mu      sync.RWMutex
	streams map[uint64]*StreamState
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{streams: make(map[uint64]*StreamState)}
}

func (r *streamRegistry) attach(ref uint64) *StreamState {
	s := newStreamState()
	r.mu.Lock()
	r.streams[ref] = s
	r.mu.Unlock()
	return s
}

func (r *streamRegistry) detach(ref uint64) {
	r.mu.Lock()
	delete(r.streams, ref)
	r.mu.Unlock()
}

func (r *streamRegistry) lookup(ref uint64) *StreamState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[ref]
}

// splitDescriptor unpacks a pointer-and-length pair from its packed form,
// pointer in the high half, length in the low half.
func splitDescriptor(d uint64) (ptr, length uint32) {
	return uint32(d >> 32), uint32(d)
}

// readView copies the descriptor's bytes out of module memory. The copy is
// mandatory: the module's buffer is only valid for the current call.
func readView(mod api.Module, d uint64) ([]byte, bool) {
	ptr, length := splitDescriptor(d)
	if length == 0 {
		return nil, true
	}
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, false
	}
	return append([]byte{}, data...), true
}

// writeResult implements the write-into-buffer protocol for value-returning
// imports: write the value if it fits the module-supplied buffer and return
// its full length either way, so a short buffer tells the module how much
// to allocate for the retry.
func writeResult(mod api.Module, out uint64, data []byte) int64 {
	ptr, capacity := splitDescriptor(out)
	if len(data) == 0 {
		return 0
	}
	if uint32(len(data)) > capacity {
		return int64(len(data))
	}
	if !mod.Memory().Write(ptr, data) {
		return -1
	}
	return int64(len(data))
}

// zapLevel maps a module log level onto the host logger's scale. The module
// side has a trace level below debug and a critical level above error; zap
// has neither, so both collapse onto the nearest level.
func zapLevel(level uint32) zapcore.Level {
	switch level {
	case 0, 1: // trace, debug
		return zapcore.DebugLevel
	case 2:
		return zapcore.InfoLevel
	case 3:
		return zapcore.WarnLevel
	default: // error, critical
		return zapcore.ErrorLevel
	}
}

// hostModule holds the state behind the streamlet_host imports.
type hostModule struct {
	streams *streamRegistry
	logger  *zap.Logger
}

// registerHostModule builds, compiles, and instantiates the streamlet_host
// import module against rt.
func registerHostModule(ctx context.Context, rt wazero.Runtime, streams *streamRegistry, logger *zap.Logger) error {
	h := &hostModule{streams: streams, logger: logger}

	builder := rt.NewHostModuleBuilder("streamlet_host")

	builder.NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "msg").
		Export("log_message")

	builder.NewFunctionBuilder().
		WithFunc(h.logEnabled).
		WithParameterNames("level").
		Export("log_enabled")

	builder.NewFunctionBuilder().
		WithFunc(h.getHeader).
		WithParameterNames("stream", "map_type", "key", "out").
		Export("get_header")

	builder.NewFunctionBuilder().
		WithFunc(h.setHeader).
		WithParameterNames("stream", "map_type", "key", "value").
		Export("set_header")

	builder.NewFunctionBuilder().
		WithFunc(h.removeHeader).
		WithParameterNames("stream", "map_type", "key").
		Export("remove_header")

	builder.NewFunctionBuilder().
		WithFunc(h.getBodyChunk).
		WithParameterNames("stream", "direction", "out").
		Export("get_body_chunk")

	builder.NewFunctionBuilder().
		WithFunc(h.appendBody).
		WithParameterNames("stream", "direction", "data").
		Export("append_body")

	_, err := builder.Instantiate(ctx)
	return err
}

func (h *hostModule) logMessage(_ context.Context, mod api.Module, level uint32, msg uint64) {
	text, ok := readView(mod, msg)
	if !ok {
		h.logger.Error("module log message with out-of-range descriptor")
		return
	}
	if ce := h.logger.Check(zapLevel(level), string(text)); ce != nil {
		ce.Write(zap.String("source", "module"))
	}
}

func (h *hostModule) logEnabled(_ context.Context, _ api.Module, level uint32) uint32 {
	if h.logger.Core().Enabled(zapLevel(level)) {
		return 1
	}
	return 0
}

func (h *hostModule) getHeader(_ context.Context, mod api.Module, stream uint64, mapType uint32, key, out uint64) int64 {
	s := h.streams.lookup(stream)
	if s == nil {
		return -1
	}
	keyBytes, ok := readView(mod, key)
	if !ok {
		return -1
	}
	value, ok := s.getHeader(hostapi.MapType(mapType), string(keyBytes))
	if !ok {
		return -1
	}
	return writeResult(mod, out, value)
}

func (h *hostModule) setHeader(_ context.Context, mod api.Module, stream uint64, mapType uint32, key, value uint64) uint32 {
	s := h.streams.lookup(stream)
	if s == nil {
		return 0
	}
	keyBytes, ok := readView(mod, key)
	if !ok {
		return 0
	}
	valueBytes, ok := readView(mod, value)
	if !ok {
		return 0
	}
	if !s.setHeader(hostapi.MapType(mapType), string(keyBytes), valueBytes) {
		return 0
	}
	return 1
}

func (h *hostModule) removeHeader(_ context.Context, mod api.Module, stream uint64, mapType uint32, key uint64) uint32 {
	s := h.streams.lookup(stream)
	if s == nil {
		return 0
	}
	keyBytes, ok := readView(mod, key)
	if !ok {
		return 0
	}
	if !s.removeHeader(hostapi.MapType(mapType), string(keyBytes)) {
		return 0
	}
	return 1
}

func (h *hostModule) getBodyChunk(_ context.Context, mod api.Module, stream uint64, direction uint32, out uint64) int64 {
	s := h.streams.lookup(stream)
	if s == nil {
		return -1
	}
	chunk, ok := s.bodyChunk(hostapi.Direction(direction))
	if !ok {
		return -1
	}
	return writeResult(mod, out, chunk)
}

func (h *hostModule) appendBody(_ context.Context, mod api.Module, stream uint64, direction uint32, data uint64) uint32 {
	s := h.streams.lookup(stream)
	if s == nil {
		return 0
	}
	dataBytes, ok := readView(mod, data)
	if !ok {
		return 0
	}
	if !s.appendBody(hostapi.Direction(direction), dataBytes) {
		return 0
	}
	return 1
}
