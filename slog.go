package logroute

import (
	"context"
	"log/slog"
)

// slogHandler routes log/slog records through a Pipeline, so code that is
// already written against the standard structured logger participates in
// namespace filtering, sampling, redaction, history, and transports.
type slogHandler struct {
	pipeline  *Pipeline
	namespace string
	attrs     []slog.Attr
	group     string
}

// NewSlogHandler returns a slog.Handler that emits through p under the
// given namespace. An empty namespace falls back to DefaultNamespace.
func NewSlogHandler(p *Pipeline, namespace string) slog.Handler {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &slogHandler{pipeline: p, namespace: namespace}
}

// fromSlogLevel maps the slog levels onto this pipeline's levels. Levels
// below debug map to trace; custom levels between the named ones round
// down.
func fromSlogLevel(level slog.Level) logLevel {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	case level >= slog.LevelDebug:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// Enabled gates by the effective level threshold for the handler's
// namespace. Sampling and namespace enablement still apply in Handle, so
// a true here is not a promise of emission.
func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.pipeline.levelEnabled(fromSlogLevel(level), h.namespace)
}

// Handle converts the slog record into a pipeline call: the message first,
// then one structured argument holding the merged attributes.
func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	args := []any{r.Message}

	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())

	// Base attribute keys were qualified when they were attached.
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Resolve().Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		fields[h.attrKey(a.Key)] = a.Value.Resolve().Any()

		return true
	})

	if len(fields) > 0 {
		args = append(args, fields)
	}

	h.pipeline.log(fromSlogLevel(r.Level), h.namespace, args)

	return nil
}

func (h *slogHandler) attrKey(key string) string {
	if h.group == "" {
		return key
	}

	return h.group + "." + key
}

// WithAttrs returns a copy of the handler with additional base attributes.
// Keys are qualified with the group open at attach time, so attributes
// added before a group never pick up its prefix.
func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	nh := *h

	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)

	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.attrKey(a.Key), Value: a.Value})
	}

	nh.attrs = merged

	return &nh
}

// WithGroup returns a copy of the handler that prefixes attribute keys
// with the group name.
func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	nh := *h

	if h.group != "" {
		nh.group = h.group + "." + name
	} else {
		nh.group = name
	}

	return &nh
}
