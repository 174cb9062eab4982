package main

import (
	"context"
	"log/slog"

	"github.com/redpanda-data/benthos/v4/public/service"
)

// benthosHandler is a slog.Handler that writes through a Benthos logger so
// decoder records share the pipeline's log configuration. Level filtering is
// left to Benthos.
type benthosHandler struct {
	logger *service.Logger
	group  string
}

// newBenthosSlog returns a *slog.Logger backed by l.
func newBenthosSlog(l *service.Logger) *slog.Logger {
	return slog.New(&benthosHandler{logger: l})
}

func (h *benthosHandler) Enabled(context.Context, slog.Level) bool {
	return h.logger != nil
}

func (h *benthosHandler) Handle(_ context.Context, r slog.Record) error {
	var kv []any
	r.Attrs(func(a slog.Attr) bool {
		kv = h.appendAttr(kv, a)
		return true
	})

	l := h.logger
	if len(kv) > 0 {
		l = l.With(kv...)
	}

	switch {
	case r.Level >= slog.LevelError:
		l.Error(r.Message)
	case r.Level >= slog.LevelWarn:
		l.Warn(r.Message)
	case r.Level >= slog.LevelInfo:
		l.Info(r.Message)
	default:
		l.Debug(r.Message)
	}
	return nil
}

func (h *benthosHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var kv []any
	for _, a := range attrs {
		kv = h.appendAttr(kv, a)
	}
	if len(kv) == 0 {
		return h
	}
	return &benthosHandler{logger: h.logger.With(kv...), group: h.group}
}

func (h *benthosHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &benthosHandler{logger: h.logger, group: h.qualify(name)}
}

func (h *benthosHandler) appendAttr(kv []any, a slog.Attr) []any {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		sub := h
		if a.Key != "" {
			sub = &benthosHandler{logger: h.logger, group: h.qualify(a.Key)}
		}
		for _, ga := range v.Group() {
			kv = sub.appendAttr(kv, ga)
		}
		return kv
	}
	if a.Key == "" {
		return kv
	}
	return append(kv, h.qualify(a.Key), v.Any())
}

func (h *benthosHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}
