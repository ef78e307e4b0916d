package observability

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const redacted = "[REDACTED]"

// sensitiveKeys are attribute names whose values never reach the log output.
var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"access_token":  {},
	"secret":        {},
	"signature":     {},
	"code":          {},
	"authorization": {},
	"x-token":       {},
}

// contextHandler redacts credentials from log records and, when enabled,
// adds OpenTelemetry trace correlation attributes (trace_id and span_id).
type contextHandler struct {
	handler    slog.Handler
	traceAttrs bool
}

func newContextHandler(handler slog.Handler, traceAttrs bool) *contextHandler {
	return &contextHandler{handler: handler, traceAttrs: traceAttrs}
}

// Enabled reports whether the handler handles records at the given level.
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rebuilds the record with sensitive attributes masked.
func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})

	if h.traceAttrs {
		spanCtx := trace.SpanContextFromContext(ctx)
		if spanCtx.IsValid() {
			out.AddAttrs(
				slog.String("trace_id", spanCtx.TraceID().String()),
				slog.String("span_id", spanCtx.SpanID().String()),
			)
		}
	}

	return h.handler.Handle(ctx, out)
}

// WithAttrs returns a new handler with additional, redacted attributes.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redact(a)
	}
	return &contextHandler{handler: h.handler.WithAttrs(clean), traceAttrs: h.traceAttrs}
}

// WithGroup returns a new handler with the given group name.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name), traceAttrs: h.traceAttrs}
}

func redact(a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}

	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: v}
	}

	group := v.Group()
	clean := make([]slog.Attr, len(group))
	for i, ga := range group {
		clean[i] = redact(ga)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
}
