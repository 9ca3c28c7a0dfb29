//go:build wasip1

package guest

import (
	"github.com/streamlet-dev/streamlet-sdk/filter"
	"github.com/streamlet-dev/streamlet-sdk/internal/abi"
	"github.com/streamlet-dev/streamlet-sdk/log"
)

// The boundary entry points. Each is a one-to-one forwarding of a raw host
// call into a dispatcher operation: descriptors become borrowed views,
// opaque handles pass through unchanged, and statuses go back as scalars.
// No entry point does work of its own beyond that translation.

//go:wasmexport module_init
//nolint:revive // snake_case matches the boundary naming
func module_init() uint64 {
	if active == nil {
		log.Criticalf("module_init before guest.Init, refusing load")
		return 0
	}
	// The version buffer stays pinned until the host frees it through the
	// deallocate export.
	return uint64(abi.OwnedBuffer([]byte(ABIVersion)))
}

//go:wasmexport module_manifest
//nolint:revive // snake_case matches the boundary naming
func module_manifest() uint64 {
	defer boundaryRecover("module_manifest")

	data := active.ManifestJSON()
	if len(data) == 0 {
		return 0
	}
	return uint64(abi.OwnedBuffer(data))
}

//go:wasmexport http_filter_config_new
//nolint:revive // snake_case matches the boundary naming
func http_filter_config_new(cfgRef uint64, name uint64, payload uint64) uint64 {
	defer boundaryRecover("http_filter_config_new")

	// Both views are valid only for this call; the dispatcher contract
	// obliges the module to copy anything it keeps.
	nameView := abi.View(abi.Descriptor(name))
	payloadView := abi.View(abi.Descriptor(payload))
	return uint64(active.ConfigNew(filter.ConfigRef(cfgRef), string(nameView), payloadView))
}

//go:wasmexport http_filter_config_destroy
//nolint:revive // snake_case matches the boundary naming
func http_filter_config_destroy(h uint64) {
	defer boundaryRecover("http_filter_config_destroy")
	active.ConfigDestroy(Handle(h))
}

//go:wasmexport http_filter_new
//nolint:revive // snake_case matches the boundary naming
func http_filter_new(configHandle uint64, stream uint64) uint64 {
	defer boundaryRecover("http_filter_new")
	return uint64(active.FilterNew(Handle(configHandle), filter.StreamRef(stream)))
}

//go:wasmexport http_filter_request_headers
//nolint:revive // snake_case matches the boundary naming
func http_filter_request_headers(h uint64, stream uint64, endOfStream uint32) uint32 {
	return uint32(active.RequestHeaders(Handle(h), filter.StreamRef(stream), endOfStream != 0))
}

//go:wasmexport http_filter_request_body
//nolint:revive // snake_case matches the boundary naming
func http_filter_request_body(h uint64, stream uint64, endOfStream uint32) uint32 {
	return uint32(active.RequestBody(Handle(h), filter.StreamRef(stream), endOfStream != 0))
}

//go:wasmexport http_filter_request_trailers
//nolint:revive // snake_case matches the boundary naming
func http_filter_request_trailers(h uint64, stream uint64) uint32 {
	return uint32(active.RequestTrailers(Handle(h), filter.StreamRef(stream)))
}

//go:wasmexport http_filter_response_headers
//nolint:revive // snake_case matches the boundary naming
func http_filter_response_headers(h uint64, stream uint64, endOfStream uint32) uint32 {
	return uint32(active.ResponseHeaders(Handle(h), filter.StreamRef(stream), endOfStream != 0))
}

//go:wasmexport http_filter_response_body
//nolint:revive // snake_case matches the boundary naming
func http_filter_response_body(h uint64, stream uint64, endOfStream uint32) uint32 {
	return uint32(active.ResponseBody(Handle(h), filter.StreamRef(stream), endOfStream != 0))
}

//go:wasmexport http_filter_response_trailers
//nolint:revive // snake_case matches the boundary naming
func http_filter_response_trailers(h uint64, stream uint64) uint32 {
	return uint32(active.ResponseTrailers(Handle(h), filter.StreamRef(stream)))
}

//go:wasmexport http_filter_destroy
//nolint:revive // snake_case matches the boundary naming
func http_filter_destroy(h uint64) {
	defer boundaryRecover("http_filter_destroy")
	active.FilterDestroy(Handle(h))
}

//go:wasmexport http_filter_per_route_config_destroy
//nolint:revive // snake_case matches the boundary naming
func http_filter_per_route_config_destroy(h uint64) {
	defer boundaryRecover("http_filter_per_route_config_destroy")
	active.PerRouteConfigDestroy(Handle(h))
}

// boundaryRecover is the last line of defense for the entry points that
// return handles or nothing: a panic that slipped past the dispatcher's
// own guards must not trap the host. Pinned return buffers are dropped so
// the aborted call cannot leak them.
func boundaryRecover(entry string) {
	if r := recover(); r != nil {
		abi.FreeAllTracked()
		log.Criticalf("%s: unrecovered panic at boundary: %v", entry, r)
	}
}
