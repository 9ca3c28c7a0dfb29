// Package guest is the module-side runtime behind the boundary entry
// points. It owns the handle arenas that stand in for raw object pointers,
// forwards each host call to the matching capability operation, and keeps
// faults inside the module: a callback that panics is logged and answered
// with the stage's Continue status, never an escaped trap.
package guest

import (
	"fmt"
	"runtime/debug"

	"github.com/streamlet-dev/streamlet-sdk/filter"
	"github.com/streamlet-dev/streamlet-sdk/log"
)

// Module is the root object a filter module supplies. It is the one
// factory the host reaches through the config-new entry point; everything
// else hangs off the objects it creates.
type Module interface {
	// NewFilterConfig parses one filter chain's configuration. name and
	// payload are borrowed for the duration of the call; anything the
	// config keeps must be copied. Returning an error refuses the
	// configuration (the host sees a null handle) and must leave no
	// partial allocations behind.
	NewFilterConfig(cfg filter.ConfigRef, name string, payload []byte) (filter.FilterConfig, error)
}

// ManifestProvider is an optional Module extension. A module implementing
// it has its manifest document exposed to host tooling through the
// manifest entry point.
type ManifestProvider interface {
	ModuleManifest() []byte
}

// Dispatcher translates boundary calls into capability operations. One
// Dispatcher serves the whole module instance; its handle tables are
// internally locked because the host drives different streams from
// different threads.
type Dispatcher struct {
	module  Module
	configs handleTable[*configEntry]
	filters handleTable[*filterEntry]
	routes  handleTable[filter.PerRouteConfig]
}

type configEntry struct {
	impl    filter.FilterConfig
	hostRef filter.ConfigRef
	name    string
}

type filterEntry struct {
	impl filter.Filter
	// config is a non-owning back-reference, valid while this entry
	// lives: the host destroys every filter before its config.
	config Handle
	stream filter.StreamRef
}

// NewDispatcher builds the dispatcher for a module. This is the explicit
// construction point: no registration globals, the module object goes
// straight in.
func NewDispatcher(m Module) *Dispatcher {
	return &Dispatcher{module: m}
}

// ConfigNew creates a filter-chain configuration. Returns NullHandle on
// parse or construction failure.
func (d *Dispatcher) ConfigNew(cfg filter.ConfigRef, name string, payload []byte) Handle {
	impl, err := d.newConfigGuarded(cfg, name, payload)
	if err != nil {
		log.Errorf("config %q rejected: %v", name, err)
		return NullHandle
	}
	return d.configs.Put(&configEntry{impl: impl, hostRef: cfg, name: name})
}

func (d *Dispatcher) newConfigGuarded(cfg filter.ConfigRef, name string, payload []byte) (impl filter.FilterConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			impl = nil
			err = fmt.Errorf("config constructor panicked: %v\n%s", r, debug.Stack())
		}
	}()

	impl, err = d.module.NewFilterConfig(cfg, name, payload)
	if err == nil && impl == nil {
		err = fmt.Errorf("module returned neither config nor error")
	}
	return impl, err
}

// ConfigDestroy releases a configuration. The host guarantees at most one
// destroy per handle and no live filter instances; a stale handle is
// logged and ignored.
func (d *Dispatcher) ConfigDestroy(h Handle) {
	entry, ok := d.configs.Remove(h)
	if !ok {
		log.Errorf("config destroy for unknown handle %#x", uint64(h))
		return
	}
	d.guardDestroy("config "+entry.name, entry.impl.Destroy)
}

// FilterNew spawns the per-stream filter instance for one exchange.
// Returns NullHandle if the config handle is stale or the config declines
// the stream. Safe for concurrent use across streams.
func (d *Dispatcher) FilterNew(configHandle Handle, stream filter.StreamRef) Handle {
	entry, ok := d.configs.Get(configHandle)
	if !ok {
		log.Errorf("filter new against unknown config handle %#x", uint64(configHandle))
		return NullHandle
	}

	impl := d.newFilterGuarded(entry, stream)
	if impl == nil {
		return NullHandle
	}
	return d.filters.Put(&filterEntry{impl: impl, config: configHandle, stream: stream})
}

func (d *Dispatcher) newFilterGuarded(entry *configEntry, stream filter.StreamRef) (impl filter.Filter) {
	defer func() {
		if r := recover(); r != nil {
			impl = nil
			log.Errorf("config %q: filter constructor panicked: %v", entry.name, r)
		}
	}()
	return entry.impl.NewFilterInstance(stream)
}

// FilterDestroy releases a per-stream instance at stream teardown. The
// config back-reference is non-owning and stays untouched.
func (d *Dispatcher) FilterDestroy(h Handle) {
	entry, ok := d.filters.Remove(h)
	if !ok {
		log.Errorf("filter destroy for unknown handle %#x", uint64(h))
		return
	}
	d.guardDestroy("filter", entry.impl.Destroy)
}

// RegisterPerRouteConfig hands a route-scoped override to the runtime and
// returns the handle the module's route configuration path gives the host.
func (d *Dispatcher) RegisterPerRouteConfig(impl filter.PerRouteConfig) Handle {
	return d.routes.Put(impl)
}

// PerRouteConfigDestroy releases a route-scoped override.
func (d *Dispatcher) PerRouteConfigDestroy(h Handle) {
	impl, ok := d.routes.Remove(h)
	if !ok {
		log.Errorf("per-route config destroy for unknown handle %#x", uint64(h))
		return
	}
	d.guardDestroy("per-route config", impl.Destroy)
}

// RequestHeaders forwards the request-headers callback.
func (d *Dispatcher) RequestHeaders(h Handle, stream filter.StreamRef, endOfStream bool) filter.RequestHeadersStatus {
	entry, ok := d.filters.Get(h)
	if !ok {
		return filter.RequestHeadersStatus(d.missingFilter("request headers", h))
	}
	return filter.RequestHeadersStatus(d.guardStatus("request headers", func() uint32 {
		return uint32(entry.impl.OnRequestHeaders(stream, endOfStream))
	}))
}

// RequestBody forwards the request-body callback.
func (d *Dispatcher) RequestBody(h Handle, stream filter.StreamRef, endOfStream bool) filter.RequestBodyStatus {
	entry, ok := d.filters.Get(h)
	if !ok {
		return filter.RequestBodyStatus(d.missingFilter("request body", h))
	}
	return filter.RequestBodyStatus(d.guardStatus("request body", func() uint32 {
		return uint32(entry.impl.OnRequestBody(stream, endOfStream))
	}))
}

// RequestTrailers forwards the request-trailers callback.
func (d *Dispatcher) RequestTrailers(h Handle, stream filter.StreamRef) filter.RequestTrailersStatus {
	entry, ok := d.filters.Get(h)
	if !ok {
		return filter.RequestTrailersStatus(d.missingFilter("request trailers", h))
	}
	return filter.RequestTrailersStatus(d.guardStatus("request trailers", func() uint32 {
		return uint32(entry.impl.OnRequestTrailers(stream))
	}))
}

// ResponseHeaders forwards the response-headers callback.
func (d *Dispatcher) ResponseHeaders(h Handle, stream filter.StreamRef, endOfStream bool) filter.ResponseHeadersStatus {
	entry, ok := d.filters.Get(h)
	if !ok {
		return filter.ResponseHeadersStatus(d.missingFilter("response headers", h))
	}
	return filter.ResponseHeadersStatus(d.guardStatus("response headers", func() uint32 {
		return uint32(entry.impl.OnResponseHeaders(stream, endOfStream))
	}))
}

// ResponseBody forwards the response-body callback.
func (d *Dispatcher) ResponseBody(h Handle, stream filter.StreamRef, endOfStream bool) filter.ResponseBodyStatus {
	entry, ok := d.filters.Get(h)
	if !ok {
		return filter.ResponseBodyStatus(d.missingFilter("response body", h))
	}
	return filter.ResponseBodyStatus(d.guardStatus("response body", func() uint32 {
		return uint32(entry.impl.OnResponseBody(stream, endOfStream))
	}))
}

// ResponseTrailers forwards the response-trailers callback.
func (d *Dispatcher) ResponseTrailers(h Handle, stream filter.StreamRef) filter.ResponseTrailersStatus {
	entry, ok := d.filters.Get(h)
	if !ok {
		return filter.ResponseTrailersStatus(d.missingFilter("response trailers", h))
	}
	return filter.ResponseTrailersStatus(d.guardStatus("response trailers", func() uint32 {
		return uint32(entry.impl.OnResponseTrailers(stream))
	}))
}

// ManifestJSON returns the module's manifest document, or nil when the
// module does not provide one.
func (d *Dispatcher) ManifestJSON() []byte {
	if p, ok := d.module.(ManifestProvider); ok {
		return p.ModuleManifest()
	}
	return nil
}

// LiveObjects reports currently held (configs, filters, per-route configs).
// The test harness uses it to assert the no-leak invariant.
func (d *Dispatcher) LiveObjects() (configs, filters, routes int) {
	return d.configs.Live(), d.filters.Live(), d.routes.Live()
}

// missingFilter handles a callback against a stale or unknown handle.
// Continue (zero in every stage enumeration) is the least surprising
// answer for a module-side fault.
func (d *Dispatcher) missingFilter(stage string, h Handle) uint32 {
	log.Errorf("%s callback for unknown filter handle %#x", stage, uint64(h))
	return 0
}

// guardStatus runs a callback, converting a panic into a logged fault and
// a Continue status. Callbacks have no error channel; a status must come
// back in all cases.
func (d *Dispatcher) guardStatus(stage string, fn func() uint32) (status uint32) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s callback panicked: %v\n%s", stage, r, debug.Stack())
			status = 0
		}
	}()
	return fn()
}

// guardDestroy runs a destroy operation, containing panics so teardown of
// one object cannot take down the module.
func (d *Dispatcher) guardDestroy(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s destroy panicked: %v", what, r)
		}
	}()
	fn()
}
