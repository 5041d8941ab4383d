package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrMapKind = "map"
)

type mapKindKey struct{}

// WithMapKind labels ctx with the kind of map being exercised. Records logged
// through a TracingHandler with such a context carry it as the "map" attribute.
func WithMapKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, mapKindKey{}, kind)
}

// MapKindFromContext returns the label set by WithMapKind.
func MapKindFromContext(ctx context.Context) (string, bool) {
	kind, ok := ctx.Value(mapKindKey{}).(string)

	return kind, ok && kind != ""
}

// TracingHandler is an [slog.Handler] that stamps records with the service name,
// the map kind found in the context, and the trace_id and span_id of the active span.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner. The service attribute is attached up front so it
// stays at the top level even after WithGroup.
func NewTracingHandler(inner slog.Handler, service string) *TracingHandler {
	return &TracingHandler{
		inner: inner.WithAttrs([]slog.Attr{slog.String(attrService, service)}),
	}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds the context attributes, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if kind, ok := MapKindFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrMapKind, kind))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
