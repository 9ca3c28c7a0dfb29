// Package log bridges module logging to the host's log sink.
//
// Messages are formatted on the module side and handed to the host as
// leveled byte payloads. Before any formatting happens, the bridge asks the
// host whether the level is enabled at all, so disabled levels cost one
// boundary query and nothing else. Formatting problems are never fatal: the
// bridge degrades to a fallback diagnostic and returns normally.
package log

import (
	"fmt"
	"sync/atomic"
)

// Level is the severity vocabulary shared with the host sink.
// The numeric values are the ABI wire values.
type Level uint32

const (
	LevelTrace    Level = 0
	LevelDebug    Level = 1
	LevelInfo     Level = 2
	LevelWarn     Level = 3
	LevelError    Level = 4
	LevelCritical Level = 5
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	}
	return "unknown"
}

// Sink receives leveled messages. On wasip1 builds the sink forwards to the
// host process; elsewhere it writes to the local process for tests and
// host-native embedding.
type Sink interface {
	// Log forwards a message unconditionally. The byte slice is borrowed
	// for the duration of the call.
	Log(level Level, msg []byte)

	// Enabled reports whether the sink will actually record the level.
	Enabled(level Level) bool
}

var sink atomic.Pointer[sinkBox]

type sinkBox struct{ s Sink }

// SetSink replaces the active sink. Intended for tests and host-native use;
// wasip1 builds install the host sink automatically.
func SetSink(s Sink) {
	sink.Store(&sinkBox{s: s})
}

func currentSink() Sink {
	if b := sink.Load(); b != nil {
		return b.s
	}
	return discardSink{}
}

type discardSink struct{}

func (discardSink) Log(Level, []byte)  {}
func (discardSink) Enabled(Level) bool { return false }

// maxMessageSize bounds the scratch buffer a single message is formatted
// into. Longer messages are a formatting failure, not a truncated log line.
const maxMessageSize = 4096

// Log forwards an already-formatted message at the given level without
// consulting the enabled gate.
func Log(level Level, msg []byte) {
	currentSink().Log(level, msg)
}

// Enabled reports whether the host records the given level.
func Enabled(level Level) bool {
	return currentSink().Enabled(level)
}

// Tracef logs a formatted message at trace level.
func Tracef(format string, args ...any) { logf(LevelTrace, format, args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { logf(LevelDebug, format, args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { logf(LevelWarn, format, args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { logf(LevelError, format, args...) }

// Criticalf logs a formatted message at critical level.
func Criticalf(format string, args ...any) { logf(LevelCritical, format, args...) }

// logf formats and forwards one message. The enabled check comes first so
// disabled levels never touch the arguments; an expensive Stringer is never
// invoked for a level the host drops.
func logf(level Level, format string, args ...any) {
	s := currentSink()
	if !s.Enabled(level) {
		return
	}

	msg, err := formatMessage(format, args...)
	if err != nil {
		// Formatting failure is recovered locally, never propagated.
		fallback := []byte("log: dropped message, formatting failed: " + err.Error())
		s.Log(LevelError, fallback)
		return
	}
	s.Log(level, msg)
}

var errMessageTooLarge = fmt.Errorf("message exceeds %d byte limit", maxMessageSize)

func recoveredFormatError(r any) error {
	return fmt.Errorf("format argument panicked: %v", r)
}

// formatMessage renders into a bounded scratch buffer, treating overflow
// and panicking format arguments as recoverable errors.
func formatMessage(format string, args ...any) (msg []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg = nil
			err = recoveredFormatError(r)
		}
	}()

	scratch := make([]byte, 0, 256)
	msg = fmt.Appendf(scratch, format, args...)
	if len(msg) > maxMessageSize {
		return nil, errMessageTooLarge
	}
	return msg, nil
}
