// Package observe provides application-wide observability primitives for
// lidroute: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all lidroute metrics.
const meterName = "github.com/MrWong99/lidroute"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DetectDuration tracks classifier latency. Use with attribute:
	//   attribute.String("classifier", ...)
	DetectDuration metric.Float64Histogram

	// ProcessDuration tracks end-to-end routing latency of one input.
	ProcessDuration metric.Float64Histogram

	// --- Counters ---

	// ClassifierRequests counts classifier calls. Use with attributes:
	//   attribute.String("classifier", ...), attribute.String("status", ...)
	ClassifierRequests metric.Int64Counter

	// RoutedRequests counts processed inputs. Use with attributes:
	//   attribute.String("route_key", ...), attribute.String("lang_code", ...)
	RoutedRequests metric.Int64Counter

	// Failures counts failed or degraded requests. Use with attribute:
	//   attribute.String("kind", ...)
	Failures metric.Int64Counter

	// ConfigReloads counts applied configuration reloads.
	ConfigReloads metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of open WebSocket routing streams.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Table
// lookups finish in microseconds; remote classifiers take milliseconds.
var latencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.DetectDuration, err = m.Float64Histogram("lidroute.detect.duration",
		metric.WithDescription("Latency of language identification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProcessDuration, err = m.Float64Histogram("lidroute.process.duration",
		metric.WithDescription("Latency of identify, normalize and route for one input."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ClassifierRequests, err = m.Int64Counter("lidroute.classifier.requests",
		metric.WithDescription("Total classifier calls by classifier and status."),
	); err != nil {
		return nil, err
	}
	if met.RoutedRequests, err = m.Int64Counter("lidroute.routed",
		metric.WithDescription("Total processed inputs by route key and language code."),
	); err != nil {
		return nil, err
	}
	if met.Failures, err = m.Int64Counter("lidroute.failures",
		metric.WithDescription("Total failed or degraded requests by failure kind."),
	); err != nil {
		return nil, err
	}
	if met.ConfigReloads, err = m.Int64Counter("lidroute.config.reloads",
		metric.WithDescription("Total applied configuration reloads."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("lidroute.active_streams",
		metric.WithDescription("Number of open WebSocket routing streams."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lidroute.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordClassifierRequest records a classifier call with the standard
// attribute set.
func (m *Metrics) RecordClassifierRequest(ctx context.Context, classifier, status string) {
	m.ClassifierRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("classifier", classifier),
			attribute.String("status", status),
		),
	)
}

// RecordRouted records one processed input.
func (m *Metrics) RecordRouted(ctx context.Context, routeKey, langCode string) {
	m.RoutedRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("route_key", routeKey),
			attribute.String("lang_code", langCode),
		),
	)
}

// RecordFailure records a failed or degraded request.
func (m *Metrics) RecordFailure(ctx context.Context, kind string) {
	m.Failures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordConfigReload records a configuration reload attempt. status is "ok"
// or "error".
func (m *Metrics) RecordConfigReload(ctx context.Context, status string) {
	m.ConfigReloads.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
