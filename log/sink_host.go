//go:build !wasip1

package log

import (
	"fmt"
	"os"
)

// processSink writes to stderr on non-wasm builds so tests and host-native
// embedding get log output without a host process.
type processSink struct {
	min Level
}

func (s processSink) Log(level Level, msg []byte) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", level, msg)
}

func (s processSink) Enabled(level Level) bool {
	return level >= s.min
}

func init() {
	SetSink(processSink{min: LevelInfo})
}
