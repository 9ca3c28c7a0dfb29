//go:build !wasip1

package hostapi

import "github.com/streamlet-dev/streamlet-sdk/filter"

// Host is a test double for the host's accessor surface. Non-wasm builds
// route the package API through an installed Host so filters can be
// exercised in-process.
type Host interface {
	GetHeader(stream filter.StreamRef, m MapType, key string) ([]byte, bool)
	SetHeader(stream filter.StreamRef, m MapType, key string, value []byte) bool
	RemoveHeader(stream filter.StreamRef, m MapType, key string) bool
	BodyChunk(stream filter.StreamRef, d Direction) ([]byte, bool)
	AppendBody(stream filter.StreamRef, d Direction, data []byte) bool
}

var impl accessors = stubAccessors{}

// SetHost installs the accessor double. Passing nil restores the default,
// which answers every read with "absent" and declines every mutation.
func SetHost(h Host) {
	if h == nil {
		impl = stubAccessors{}
		return
	}
	impl = hostAccessors{h: h}
}

type hostAccessors struct {
	h Host
}

func (a hostAccessors) getHeader(stream filter.StreamRef, m MapType, key string) ([]byte, bool) {
	return a.h.GetHeader(stream, m, key)
}

func (a hostAccessors) setHeader(stream filter.StreamRef, m MapType, key string, value []byte) bool {
	return a.h.SetHeader(stream, m, key, value)
}

func (a hostAccessors) removeHeader(stream filter.StreamRef, m MapType, key string) bool {
	return a.h.RemoveHeader(stream, m, key)
}

func (a hostAccessors) bodyChunk(stream filter.StreamRef, d Direction) ([]byte, bool) {
	return a.h.BodyChunk(stream, d)
}

func (a hostAccessors) appendBody(stream filter.StreamRef, d Direction, data []byte) bool {
	return a.h.AppendBody(stream, d, data)
}

// stubAccessors is the inert default outside a host process.
type stubAccessors struct{}

func (stubAccessors) getHeader(filter.StreamRef, MapType, string) ([]byte, bool) { return nil, false }
func (stubAccessors) setHeader(filter.StreamRef, MapType, string, []byte) bool   { return false }
func (stubAccessors) removeHeader(filter.StreamRef, MapType, string) bool        { return false }
func (stubAccessors) bodyChunk(filter.StreamRef, Direction) ([]byte, bool)       { return nil, false }
func (stubAccessors) appendBody(filter.StreamRef, Direction, []byte) bool        { return false }
