// Package filter defines the capability interfaces a streamlet module
// implements: per-filter-chain configuration, per-stream filter instances,
// and route-scoped configuration overrides.
//
// The host drives every object in this package. It creates a FilterConfig
// once per filter chain, asks it for one Filter per stream, delivers the
// stream's callbacks strictly serialized, and destroys each object exactly
// once. Implementations never see overlapping calls on a single Filter;
// a FilterConfig, in contrast, may be asked for new instances from several
// stream threads at once and its NewFilterInstance path must tolerate that,
// either by keeping config state immutable after construction or by locking
// internally.
package filter

// StreamRef is the host's opaque back-reference for one request/response
// exchange. The same value is passed to every callback of one Filter
// instance. It is only meaningful when handed back to host accessor calls.
type StreamRef uint64

// ConfigRef is the host's opaque back-reference for one filter chain
// configuration, supplied when the config is created.
type ConfigRef uint64

// FilterConfig is the per-filter-chain capability. A single FilterConfig
// is shared by every stream the chain processes.
type FilterConfig interface {
	// NewFilterInstance constructs the per-stream state for one exchange.
	// Returning nil tells the host the filter cannot attach to this
	// stream; what the host does with the stream afterwards is host
	// policy. A failing implementation must release anything it
	// allocated before the failure point.
	//
	// Called concurrently from multiple stream threads.
	NewFilterInstance(stream StreamRef) Filter

	// Destroy releases everything the config owns. The host calls it at
	// most once, and only after every Filter spawned from this config
	// has been destroyed.
	Destroy()
}

// Filter is the per-stream capability. Callbacks arrive in the host's
// stream processing order: headers before body before trailers within a
// direction, with no guarantee that both directions occur or how they
// interleave. Any callback may be skipped or repeated by the host.
//
// endOfStream signals that no further data will arrive in that direction.
// Byte views handed to a callback through host accessors are borrowed and
// must not be retained past the callback's return.
type Filter interface {
	OnRequestHeaders(stream StreamRef, endOfStream bool) RequestHeadersStatus
	OnRequestBody(stream StreamRef, endOfStream bool) RequestBodyStatus
	OnRequestTrailers(stream StreamRef) RequestTrailersStatus
	OnResponseHeaders(stream StreamRef, endOfStream bool) ResponseHeadersStatus
	OnResponseBody(stream StreamRef, endOfStream bool) ResponseBodyStatus
	OnResponseTrailers(stream StreamRef) ResponseTrailersStatus

	// Destroy releases the instance's own resources at stream teardown.
	// The back-reference to the FilterConfig is non-owning and is not
	// released here.
	Destroy()
}

// PerRouteConfig is the route-scoped override capability. Creation is
// driven by the host's route table through a module-specific path; the
// only operation the boundary needs is destruction.
type PerRouteConfig interface {
	Destroy()
}

// NopFilter is a Filter that continues at every stage and owns nothing.
// Embed it to implement only the callbacks a filter cares about.
type NopFilter struct{}

var _ Filter = NopFilter{}

func (NopFilter) OnRequestHeaders(StreamRef, bool) RequestHeadersStatus {
	return RequestHeadersContinue
}

func (NopFilter) OnRequestBody(StreamRef, bool) RequestBodyStatus {
	return RequestBodyContinue
}

func (NopFilter) OnRequestTrailers(StreamRef) RequestTrailersStatus {
	return RequestTrailersContinue
}

func (NopFilter) OnResponseHeaders(StreamRef, bool) ResponseHeadersStatus {
	return ResponseHeadersContinue
}

func (NopFilter) OnResponseBody(StreamRef, bool) ResponseBodyStatus {
	return ResponseBodyContinue
}

func (NopFilter) OnResponseTrailers(StreamRef) ResponseTrailersStatus {
	return ResponseTrailersContinue
}

func (NopFilter) Destroy() {}
