package log

import (
	"context"
	"log/slog"
)

// HostHandler implements slog.Handler on top of the host sink, so module
// code can use the standard slog API. Level gating defers to the host's
// enabled query; attributes are rendered as key=value pairs appended to
// the message.
type HostHandler struct {
	attrs  []slog.Attr
	groups []string
}

// NewHandler creates a HostHandler.
func NewHandler() *HostHandler {
	return &HostHandler{}
}

// Enabled defers to the host's level-enabled query.
func (h *HostHandler) Enabled(_ context.Context, level slog.Level) bool {
	return Enabled(levelFromSlog(level))
}

// Handle renders the record and forwards it to the host sink. Rendering
// failures degrade to the bridge's fallback diagnostic.
func (h *HostHandler) Handle(_ context.Context, record slog.Record) error {
	s := currentSink()
	level := levelFromSlog(record.Level)

	msg, err := formatRecord(h.groups, h.attrs, record)
	if err != nil {
		s.Log(LevelError, []byte("log: dropped record, formatting failed: "+err.Error()))
		return nil
	}
	s.Log(level, msg)
	return nil
}

// WithAttrs returns a handler that includes attrs in every record. Keys are
// qualified with the group prefix in effect at the time they are added.
func (h *HostHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr{}, h.attrs...)
	prefix := groupPrefix(h.groups)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *HostHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

// formatRecord renders "msg key=value ..." into a bounded buffer.
func formatRecord(groups []string, preAttrs []slog.Attr, record slog.Record) (msg []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg = nil
			err = recoveredFormatError(r)
		}
	}()

	buf := make([]byte, 0, 256)
	buf = append(buf, record.Message...)

	appendAttr := func(prefix string, a slog.Attr) bool {
		a.Value = a.Value.Resolve()
		buf = append(buf, ' ')
		buf = append(buf, prefix...)
		buf = append(buf, a.Key...)
		buf = append(buf, '=')
		buf = append(buf, a.Value.String()...)
		return len(buf) <= maxMessageSize
	}

	// Pre-bound attrs carry their prefix in the key already; record attrs
	// get the handler's full group prefix.
	for _, a := range preAttrs {
		if !appendAttr("", a) {
			return nil, errMessageTooLarge
		}
	}
	prefix := groupPrefix(groups)
	overflow := false
	record.Attrs(func(a slog.Attr) bool {
		if !appendAttr(prefix, a) {
			overflow = true
			return false
		}
		return true
	})
	if overflow || len(buf) > maxMessageSize {
		return nil, errMessageTooLarge
	}
	return buf, nil
}

func groupPrefix(groups []string) string {
	prefix := ""
	for _, g := range groups {
		prefix += g + "."
	}
	return prefix
}

func levelFromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelDebug:
		return LevelTrace
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	case level < slog.LevelError+4:
		return LevelError
	default:
		return LevelCritical
	}
}

// init routes the default slog logger through the host sink, matching the
// package's role as the module's only log path.
func init() {
	slog.SetDefault(slog.New(NewHandler()))
}
