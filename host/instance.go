package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/streamlet-dev/streamlet-sdk/filter"
)

// ErrConfigRejected reports that the module refused a filter-chain
// configuration. Details are in the module's log output.
var ErrConfigRejected = errors.New("module rejected the configuration")

// ErrFilterDeclined reports that a config declined to attach a filter
// instance to a stream.
var ErrFilterDeclined = errors.New("module declined the stream")

// Instance is one instantiated filter module. Boundary calls against a
// single instance must be serialized by the caller; distinct instances are
// independent.
type Instance struct {
	mod api.Module

	allocate   api.Function
	deallocate api.Function

	configNew       api.Function
	configDestroy   api.Function
	filterNew       api.Function
	filterDestroy   api.Function
	perRouteDestroy api.Function

	requestHeaders   api.Function
	requestBody      api.Function
	requestTrailers  api.Function
	responseHeaders  api.Function
	responseBody     api.Function
	responseTrailers api.Function
}

// newInstance instantiates the compiled module and performs the version
// handshake. The instance is unusable and closed on any mismatch.
func newInstance(ctx context.Context, r *Runtime) (*Instance, error) {
	mod, err := r.runtime.InstantiateModule(ctx, r.compiled,
		wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("instantiating module: %w", err)
	}

	inst := &Instance{
		mod:              mod,
		allocate:         mod.ExportedFunction("allocate"),
		deallocate:       mod.ExportedFunction("deallocate"),
		configNew:        mod.ExportedFunction("http_filter_config_new"),
		configDestroy:    mod.ExportedFunction("http_filter_config_destroy"),
		filterNew:        mod.ExportedFunction("http_filter_new"),
		filterDestroy:    mod.ExportedFunction("http_filter_destroy"),
		perRouteDestroy:  mod.ExportedFunction("http_filter_per_route_config_destroy"),
		requestHeaders:   mod.ExportedFunction("http_filter_request_headers"),
		requestBody:      mod.ExportedFunction("http_filter_request_body"),
		requestTrailers:  mod.ExportedFunction("http_filter_request_trailers"),
		responseHeaders:  mod.ExportedFunction("http_filter_response_headers"),
		responseBody:     mod.ExportedFunction("http_filter_response_body"),
		responseTrailers: mod.ExportedFunction("http_filter_response_trailers"),
	}

	if err := inst.handshake(ctx); err != nil {
		mod.Close(ctx)
		return nil, err
	}
	return inst, nil
}

// handshake calls module_init and string-compares the returned version
// identifier against ExpectedABIVersion. Exact match or refusal; there is
// no negotiation.
func (i *Instance) handshake(ctx context.Context) error {
	init := i.mod.ExportedFunction("module_init")
	results, err := init.Call(ctx)
	if err != nil {
		return fmt.Errorf("module_init trapped: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return errors.New("module_init returned no version identifier")
	}

	desc := results[0]
	version, ok := readView(i.mod, desc)
	i.freeGuest(ctx, desc)
	if !ok {
		return errors.New("module_init returned an out-of-range descriptor")
	}
	if string(version) != ExpectedABIVersion {
		return fmt.Errorf("version mismatch: module speaks %q, host expects %q",
			version, ExpectedABIVersion)
	}
	return nil
}

// Manifest fetches the module's self-description document. The export is
// optional; modules without one yield (nil, nil).
func (i *Instance) Manifest(ctx context.Context) ([]byte, error) {
	fn := i.mod.ExportedFunction("module_manifest")
	if fn == nil {
		return nil, nil
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("module_manifest trapped: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return nil, nil
	}
	desc := results[0]
	data, ok := readView(i.mod, desc)
	i.freeGuest(ctx, desc)
	if !ok {
		return nil, errors.New("module_manifest returned an out-of-range descriptor")
	}
	return data, nil
}

// writeGuest stages data in module memory via the allocate export and
// returns the packed descriptor. The caller frees it with freeGuest after
// the boundary call returns.
func (i *Instance) writeGuest(ctx context.Context, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	results, err := i.allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("allocate trapped: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, errors.New("allocate returned null")
	}
	ptr := uint32(results[0])
	if !i.mod.Memory().Write(ptr, data) {
		return 0, errors.New("allocate returned an out-of-range pointer")
	}
	return uint64(ptr)<<32 | uint64(uint32(len(data))), nil
}

func (i *Instance) freeGuest(ctx context.Context, desc uint64) {
	if desc == 0 {
		return
	}
	ptr, length := splitDescriptor(desc)
	i.deallocate.Call(ctx, uint64(ptr), uint64(length))
}

// NewConfig asks the module to build a filter-chain configuration. cfgRef
// is the host-side identity echoed back in capability calls.
func (i *Instance) NewConfig(ctx context.Context, cfgRef uint64, name string, payload []byte) (uint64, error) {
	nameDesc, err := i.writeGuest(ctx, []byte(name))
	if err != nil {
		return 0, err
	}
	defer i.freeGuest(ctx, nameDesc)

	payloadDesc, err := i.writeGuest(ctx, payload)
	if err != nil {
		return 0, err
	}
	defer i.freeGuest(ctx, payloadDesc)

	results, err := i.configNew.Call(ctx, cfgRef, nameDesc, payloadDesc)
	if err != nil {
		return 0, fmt.Errorf("config new trapped: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, ErrConfigRejected
	}
	return results[0], nil
}

// DestroyConfig releases a configuration handle. Call at most once per
// handle, after every filter created from it is destroyed.
func (i *Instance) DestroyConfig(ctx context.Context, handle uint64) error {
	_, err := i.configDestroy.Call(ctx, handle)
	return err
}

// NewFilter attaches a per-stream filter instance.
func (i *Instance) NewFilter(ctx context.Context, configHandle, streamRef uint64) (uint64, error) {
	results, err := i.filterNew.Call(ctx, configHandle, streamRef)
	if err != nil {
		return 0, fmt.Errorf("filter new trapped: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, ErrFilterDeclined
	}
	return results[0], nil
}

// DestroyFilter releases a per-stream filter at stream teardown.
func (i *Instance) DestroyFilter(ctx context.Context, handle uint64) error {
	_, err := i.filterDestroy.Call(ctx, handle)
	return err
}

// DestroyPerRouteConfig releases a route-scoped configuration handle.
func (i *Instance) DestroyPerRouteConfig(ctx context.Context, handle uint64) error {
	_, err := i.perRouteDestroy.Call(ctx, handle)
	return err
}

func boolArg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// callStage runs one stage callback and returns the raw status scalar.
func (i *Instance) callStage(ctx context.Context, fn api.Function, args ...uint64) (uint32, error) {
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("stage callback trapped: %w", err)
	}
	if len(results) == 0 {
		return 0, errors.New("stage callback returned no status")
	}
	return uint32(results[0]), nil
}

// RequestHeaders drives the request-headers callback and decodes the
// status. A scalar outside the stage's vocabulary is an error, not a
// guess.
func (i *Instance) RequestHeaders(ctx context.Context, handle, streamRef uint64, endOfStream bool) (filter.RequestHeadersStatus, error) {
	raw, err := i.callStage(ctx, i.requestHeaders, handle, streamRef, boolArg(endOfStream))
	if err != nil {
		return 0, err
	}
	status := filter.RequestHeadersStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("invalid request headers status %d", raw)
	}
	return status, nil
}

// RequestBody drives the request-body callback for one buffered chunk.
func (i *Instance) RequestBody(ctx context.Context, handle, streamRef uint64, endOfStream bool) (filter.RequestBodyStatus, error) {
	raw, err := i.callStage(ctx, i.requestBody, handle, streamRef, boolArg(endOfStream))
	if err != nil {
		return 0, err
	}
	status := filter.RequestBodyStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("invalid request body status %d", raw)
	}
	return status, nil
}

// RequestTrailers drives the request-trailers callback.
func (i *Instance) RequestTrailers(ctx context.Context, handle, streamRef uint64) (filter.RequestTrailersStatus, error) {
	raw, err := i.callStage(ctx, i.requestTrailers, handle, streamRef)
	if err != nil {
		return 0, err
	}
	status := filter.RequestTrailersStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("invalid request trailers status %d", raw)
	}
	return status, nil
}

// ResponseHeaders drives the response-headers callback.
func (i *Instance) ResponseHeaders(ctx context.Context, handle, streamRef uint64, endOfStream bool) (filter.ResponseHeadersStatus, error) {
	raw, err := i.callStage(ctx, i.responseHeaders, handle, streamRef, boolArg(endOfStream))
	if err != nil {
		return 0, err
	}
	status := filter.ResponseHeadersStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("invalid response headers status %d", raw)
	}
	return status, nil
}

// ResponseBody drives the response-body callback for one buffered chunk.
func (i *Instance) ResponseBody(ctx context.Context, handle, streamRef uint64, endOfStream bool) (filter.ResponseBodyStatus, error) {
	raw, err := i.callStage(ctx, i.responseBody, handle, streamRef, boolArg(endOfStream))
	if err != nil {
		return 0, err
	}
	status := filter.ResponseBodyStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("invalid response body status %d", raw)
	}
	return status, nil
}

// ResponseTrailers drives the response-trailers callback.
func (i *Instance) ResponseTrailers(ctx context.Context, handle, streamRef uint64) (filter.ResponseTrailersStatus, error) {
	raw, err := i.callStage(ctx, i.responseTrailers, handle, streamRef)
	if err != nil {
		return 0, err
	}
	status := filter.ResponseTrailersStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("invalid response trailers status %d", raw)
	}
	return status, nil
}

// Close discards the instance without returning it to a pool.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}
