//go:build wasip1

package log

import (
	"github.com/streamlet-dev/streamlet-sdk/internal/abi"
)

// Host log imports. The message descriptor is borrowed: the host must copy
// the bytes during the call.
//
//go:wasmimport streamlet_host log_message
//nolint:revive // snake_case matches the host import convention
func host_log_message(level uint32, msg uint64)

//go:wasmimport streamlet_host log_enabled
//nolint:revive // snake_case matches the host import convention
func host_log_enabled(level uint32) uint32

// hostSink forwards messages over the boundary.
type hostSink struct{}

func (hostSink) Log(level Level, msg []byte) {
	host_log_message(uint32(level), uint64(abi.BorrowedBuffer(msg)))
}

func (hostSink) Enabled(level Level) bool {
	return host_log_enabled(uint32(level)) != 0
}

func init() {
	SetSink(hostSink{})
}
