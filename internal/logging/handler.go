// Package logging provides the service's slog handlers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// HumanReadableHandler writes one line per record in the form
// "message (key=value, key=value)".
type HumanReadableHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	opts   slog.HandlerOptions
	attrs  []slog.Attr // pre-resolved attributes from WithAttrs
	prefix string      // dotted group prefix from WithGroup
}

// NewHumanReadableHandler creates a new human-readable log handler.
func NewHumanReadableHandler(w io.Writer, opts *slog.HandlerOptions) *HumanReadableHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &HumanReadableHandler{
		mu:     &sync.Mutex{},
		writer: w,
		opts:   *opts,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *HumanReadableHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes the log record.
func (h *HumanReadableHandler) Handle(_ context.Context, r slog.Record) error {
	// time, level and msg pass through ReplaceAttr like any other attribute
	// so callers can drop them.
	builtin := []slog.Attr{
		slog.Time(slog.TimeKey, r.Time),
		slog.Any(slog.LevelKey, r.Level),
		slog.String(slog.MessageKey, r.Message),
	}

	var msg string
	var hasMsg bool
	var fields []slog.Attr
	for _, a := range builtin {
		a = h.replace(nil, a)
		if a.Key == "" {
			continue
		}
		if a.Key == slog.MessageKey {
			msg, hasMsg = a.Value.String(), true
			continue
		}
		fields = append(fields, a)
	}

	fields = append(fields, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.qualify(a)...)
		return true
	})

	var buf strings.Builder
	if hasMsg {
		buf.WriteString(msg)
	}
	if len(fields) > 0 {
		if hasMsg {
			buf.WriteString(" (")
		}
		for i, a := range fields {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(a.Key)
			buf.WriteString("=")
			writeValue(&buf, a.Value)
		}
		if hasMsg {
			buf.WriteString(")")
		}
	}
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, buf.String())
	return err
}

// WithAttrs returns a new handler that prepends attrs to every record.
func (h *HumanReadableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, h.qualify(a)...)
	}
	return h2
}

// WithGroup returns a new handler that qualifies later keys with name.
func (h *HumanReadableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.prefix = h.prefix + name + "."
	return h2
}

func (h *HumanReadableHandler) clone() *HumanReadableHandler {
	return &HumanReadableHandler{
		mu:     h.mu,
		writer: h.writer,
		opts:   h.opts,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		prefix: h.prefix,
	}
}

// qualify resolves a, flattens groups into dotted keys and applies
// ReplaceAttr.
func (h *HumanReadableHandler) qualify(a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		inner := &HumanReadableHandler{opts: h.opts, prefix: h.prefix}
		if a.Key != "" {
			inner.prefix += a.Key + "."
		}
		var out []slog.Attr
		for _, ga := range a.Value.Group() {
			out = append(out, inner.qualify(ga)...)
		}
		return out
	}
	a = h.replace(nil, a)
	if a.Key == "" {
		return nil
	}
	a.Key = h.prefix + a.Key
	return []slog.Attr{a}
}

func (h *HumanReadableHandler) replace(groups []string, a slog.Attr) slog.Attr {
	if h.opts.ReplaceAttr == nil {
		return a
	}
	return h.opts.ReplaceAttr(groups, a)
}

// writeValue quotes strings that contain spaces or '='.
func writeValue(buf *strings.Builder, v slog.Value) {
	if v.Kind() == slog.KindString {
		s := v.String()
		if strings.ContainsAny(s, " =") {
			buf.WriteString(`"`)
			buf.WriteString(s)
			buf.WriteString(`"`)
			return
		}
		buf.WriteString(s)
		return
	}
	fmt.Fprintf(buf, "%v", v.Any())
}
