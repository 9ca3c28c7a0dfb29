// Package hostapi exposes the host's per-stream accessor calls: reading
// and writing headers and body data for the stream a callback is currently
// servicing.
//
// Every accessor takes the StreamRef the callback received; using a ref
// outside its callback is a contract violation the host does not defend
// against. Returned byte slices are owned by the module and safe to keep;
// the copies are made on the module side of the boundary.
package hostapi

import "github.com/streamlet-dev/streamlet-sdk/filter"

// MapType selects which header map an accessor touches.
type MapType uint32

const (
	MapRequestHeaders   MapType = 0
	MapResponseHeaders  MapType = 1
	MapRequestTrailers  MapType = 2
	MapResponseTrailers MapType = 3
)

// Direction selects the body stream an accessor touches.
type Direction uint32

const (
	DirectionRequest  Direction = 0
	DirectionResponse Direction = 1
)

// initialValueCap sizes the first fetch buffer; accessors grow and retry
// when a value is larger.
const initialValueCap = 256

// GetHeader returns the value of the first header named key in the given
// map, and whether it was present.
func GetHeader(stream filter.StreamRef, m MapType, key string) ([]byte, bool) {
	return impl.getHeader(stream, m, key)
}

// SetHeader sets key to value in the given map, replacing existing values.
// Reports whether the host accepted the mutation at this stage.
func SetHeader(stream filter.StreamRef, m MapType, key string, value []byte) bool {
	return impl.setHeader(stream, m, key, value)
}

// RemoveHeader deletes every header named key from the given map.
// Reports whether the host accepted the mutation at this stage.
func RemoveHeader(stream filter.StreamRef, m MapType, key string) bool {
	return impl.removeHeader(stream, m, key)
}

// BodyChunk returns the data the host currently buffers for the direction,
// and whether any body exists at this stage.
func BodyChunk(stream filter.StreamRef, d Direction) ([]byte, bool) {
	return impl.bodyChunk(stream, d)
}

// AppendBody appends data to the buffered body for the direction.
// Reports whether the host accepted the mutation at this stage.
func AppendBody(stream filter.StreamRef, d Direction, data []byte) bool {
	return impl.appendBody(stream, d, data)
}

// accessors is the platform-specific transport behind the package API.
type accessors interface {
	getHeader(stream filter.StreamRef, m MapType, key string) ([]byte, bool)
	setHeader(stream filter.StreamRef, m MapType, key string, value []byte) bool
	removeHeader(stream filter.StreamRef, m MapType, key string) bool
	bodyChunk(stream filter.StreamRef, d Direction) ([]byte, bool)
	appendBody(stream filter.StreamRef, d Direction, data []byte) bool
}
