package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// scopeName is the instrumentation scope every lidroute span is recorded under.
const scopeName = "github.com/MrWong99/lidroute"

// Span names of the routing path. A routed input produces one SpanProcess
// span with a SpanDetect child.
const (
	SpanDetect  = "langid.Detect"
	SpanProcess = "router.Process"
)

// Attribute keys set on routing spans.
const (
	AttrLangCode       = attribute.Key("lang.code")
	AttrLangConfidence = attribute.Key("lang.confidence")
	AttrRouteKey       = attribute.Key("route.key")
	AttrPipeline       = attribute.Key("pipeline")
)

// StartSpan starts a span on the globally registered tracer provider. The
// caller ends it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, name, opts...)
}

// DetectionAttrs describes the top prediction of a detection.
func DetectionAttrs(code string, confidence float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrLangCode.String(code),
		AttrLangConfidence.Float64(confidence),
	}
}

// RouteAttrs describes where an input was routed and which pipeline cleaned it.
func RouteAttrs(code, routeKey, pipeline string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrLangCode.String(code),
		AttrRouteKey.String(routeKey),
		AttrPipeline.String(pipeline),
	}
}

// CorrelationID is the trace ID of the span in ctx, or "" outside a trace.
// The HTTP layer echoes it as X-Correlation-ID.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger, tagged with trace_id and span_id when
// ctx carries a span so detection and routing logs join up with their traces.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
