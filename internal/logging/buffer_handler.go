package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// LogCallback is called for every entry written to the ring buffer.
// It lets the API stream logs without importing this package's internals.
type LogCallback func(entry LogEntry)

// BufferHandler is a slog.Handler writing to the global ring buffer and
// log callback. Both are looked up per record, so handlers created before
// Initialize still reach the current sinks.
type BufferHandler struct {
	level  slog.Leveler
	attrs  []scopedAttr
	groups []string
}

// scopedAttr is an attribute added by WithAttrs under the groups open at that time.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

// NewBufferHandler creates a buffer handler.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	buffer, callback := currentSinks()
	if buffer == nil && callback == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelToString(r.Level),
		Module:     "supervisor",
		Message:    r.Message,
		Attributes: make(map[string]any),
	}
	collect := func(groups []string, a slog.Attr) {
		if a.Key == "module" && len(groups) == 0 {
			entry.Module = a.Value.String()
			return
		}
		flattenAttr(entry.Attributes, groups, a)
	}
	for _, sa := range h.attrs {
		collect(sa.groups, sa.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(h.groups, a)
		return true
	})
	if len(entry.Attributes) == 0 {
		entry.Attributes = nil
	}

	if buffer != nil {
		buffer.Write(entry)
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

// flattenAttr stores a into attrs using dot-separated group prefixes.
func flattenAttr(attrs map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		nested := append(slices.Clone(groups), a.Key)
		for _, ga := range a.Value.Group() {
			flattenAttr(attrs, nested, ga)
		}
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = a.Value.Any()
		}
	default:
		attrs[key] = a.Value.Any()
	}
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scoped := slices.Clip(h.attrs)
	for _, a := range attrs {
		scoped = append(scoped, scopedAttr{groups: h.groups, attr: a})
	}
	return &BufferHandler{
		level:  h.level,
		attrs:  scoped,
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &BufferHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: append(slices.Clip(h.groups), name),
	}
}

func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// FormatLogLine renders an entry as a single human readable line.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	sb.WriteString(entry.Timestamp.Format(time.RFC3339Nano))
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(entry.Level))
	sb.WriteString("] [")
	sb.WriteString(entry.Module)
	sb.WriteString("] ")
	sb.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Attributes))
	for k := range entry.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
