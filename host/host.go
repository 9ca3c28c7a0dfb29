// Package host runs filter modules inside a wazero runtime. It compiles a
// module, checks that every boundary export is present, performs the
// version handshake, registers the streamlet_host import module that backs
// the module's log and header/body accessors, and keeps a pool of
// instantiated modules ready for streams.
package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/streamlet-dev/streamlet-sdk/guest"
)

// ExpectedABIVersion is the identifier the module's init entry point must
// return, byte for byte. Any other value refuses the load.
const ExpectedABIVersion = guest.ABIVersion

// requiredExports are the functions every filter module must export. A
// module missing any of them is rejected at compile time, before the first
// instantiation.
var requiredExports = []string{
	"module_init",
	"allocate",
	"deallocate",
	"http_filter_config_new",
	"http_filter_config_destroy",
	"http_filter_new",
	"http_filter_destroy",
	"http_filter_request_headers",
	"http_filter_request_body",
	"http_filter_request_trailers",
	"http_filter_response_headers",
	"http_filter_response_body",
	"http_filter_response_trailers",
	"http_filter_per_route_config_destroy",
}

type options struct {
	logger         *zap.Logger
	poolSize       int
	maxMemoryPages int
	interpreter    bool
}

// Option adjusts runtime construction.
type Option func(*options)

// WithLogger routes module log messages and runtime diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPoolSize sets how many module instances are kept instantiated.
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithMaxMemoryPages caps the module's linear memory, in 64 KiB pages.
func WithMaxMemoryPages(n int) Option {
	return func(o *options) { o.maxMemoryPages = n }
}

// WithInterpreter selects the interpreter backend instead of the compiler,
// for platforms without compiler support.
func WithInterpreter() Option {
	return func(o *options) { o.interpreter = true }
}

// Runtime owns one compiled filter module and its instance pool.
type Runtime struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	pool     *InstancePool
	logger   *zap.Logger
	streams  *streamRegistry
}

// New compiles wasmBytes, validates its exports, registers the host import
// module, and fills the instance pool. Every pooled instance has already
// passed the version handshake.
func New(ctx context.Context, wasmBytes []byte, opts ...Option) (*Runtime, error) {
	o := options{
		logger:         zap.NewNop(),
		poolSize:       4,
		maxMemoryPages: 256, // 16 MiB
	}
	for _, opt := range opts {
		opt(&o)
	}

	var rtCfg wazero.RuntimeConfig
	if o.interpreter {
		rtCfg = wazero.NewRuntimeConfigInterpreter()
	} else {
		rtCfg = wazero.NewRuntimeConfigCompiler()
	}
	rtCfg = rtCfg.WithMemoryLimitPages(uint32(o.maxMemoryPages))

	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	r := &Runtime{
		runtime: rt,
		logger:  o.logger,
		streams: newStreamRegistry(),
	}

	if err := registerHostModule(ctx, rt, r.streams, o.logger); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("registering host module: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("compiling module: %w", err)
	}
	if err := validateExports(compiled); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	r.compiled = compiled

	pool, err := newInstancePool(ctx, r, o.poolSize)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	r.pool = pool

	return r, nil
}

// validateExports checks the compiled module for every boundary export.
func validateExports(compiled wazero.CompiledModule) error {
	exported := make(map[string]bool)
	for _, def := range compiled.ExportedFunctions() {
		for _, name := range def.ExportNames() {
			exported[name] = true
		}
	}
	for _, name := range requiredExports {
		if !exported[name] {
			return fmt.Errorf("module does not export %q", name)
		}
	}
	return nil
}

// Acquire borrows a ready instance from the pool, instantiating a fresh one
// when the pool is drained.
func (r *Runtime) Acquire(ctx context.Context) (*Instance, error) {
	return r.pool.Borrow(ctx)
}

// Release returns an instance to the pool.
func (r *Runtime) Release(ctx context.Context, inst *Instance) {
	r.pool.Return(ctx, inst)
}

// AttachStream registers exchange state for a stream reference. The module's
// header and body accessor imports resolve against it until DetachStream.
func (r *Runtime) AttachStream(ref uint64) *StreamState {
	return r.streams.attach(ref)
}

// DetachStream drops the exchange state for a stream reference.
func (r *Runtime) DetachStream(ref uint64) {
	r.streams.detach(ref)
}

// Close tears down the pool and the underlying wazero runtime.
func (r *Runtime) Close(ctx context.Context) error {
	if r.pool != nil {
		r.pool.Close(ctx)
	}
	return r.runtime.Close(ctx)
}
