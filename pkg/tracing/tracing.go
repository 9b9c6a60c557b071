// Package tracing holds the process tracer. Spans are no-ops until Setup installs
// an exporting provider.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a child span of the span in ctx
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// EventID tags a span with the event being processed
func EventID(id string) attribute.KeyValue {
	return attribute.String("fern.event_id", id)
}

// OriginID tags a span with an origin
func OriginID(id string) attribute.KeyValue {
	return attribute.String("fern.origin_id", id)
}
