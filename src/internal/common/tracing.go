package common

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TagSpan reads the current span out of ctx and attaches attrs to it. The
// core never constructs a TracerProvider or starts its own spans — that is
// the embedding process's job; it only annotates whatever span (real or
// no-op) is already live on the context.
func TagSpan(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// RecordSpanError records err on the current span, if any.
func RecordSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	trace.SpanFromContext(ctx).RecordError(err)
}
