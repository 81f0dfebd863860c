// Package observe provides application-wide observability primitives for
// ramble: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
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

// meterName is the instrumentation scope name used for all ramble metrics.
const meterName = "github.com/ashishact/ramble"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StageDuration tracks per-stage pipeline task latency. Use with
	// attribute:
	//   attribute.String("task", ...)
	StageDuration metric.Float64Histogram

	// LLMDuration tracks model completion latency. Use with attribute:
	//   attribute.String("tier", ...)
	LLMDuration metric.Float64Histogram

	// --- Counters ---

	// LLMRequests counts model API calls. Use with attributes:
	//   attribute.String("tier", ...), attribute.String("status", ...)
	LLMRequests metric.Int64Counter

	// UnitsIngested counts conversational units accepted for processing.
	UnitsIngested metric.Int64Counter

	// CorrectionsApplied counts word corrections applied during
	// preprocessing. Use with attribute:
	//   attribute.String("source", ...) one of learned, vocabulary
	CorrectionsApplied metric.Int64Counter

	// ClaimsDerived counts claims written by the resolve stage.
	ClaimsDerived metric.Int64Counter

	// InsightsProduced counts observer insights. Use with attribute:
	//   attribute.String("observer", ...)
	InsightsProduced metric.Int64Counter

	// --- Error counters ---

	// TaskErrors counts failed pipeline tasks. Use with attribute:
	//   attribute.String("task", ...)
	TaskErrors metric.Int64Counter

	// --- Gauges ---

	// InFlightUnits tracks units currently being processed by the worker.
	InFlightUnits metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets cover model round trips, the lower ones local stages.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("ramble.stage.duration",
		metric.WithDescription("Latency of pipeline tasks by task name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("ramble.llm.duration",
		metric.WithDescription("Latency of model completions by tier."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.LLMRequests, err = m.Int64Counter("ramble.llm.requests",
		metric.WithDescription("Total model API requests by tier and status."),
	); err != nil {
		return nil, err
	}
	if met.UnitsIngested, err = m.Int64Counter("ramble.units.ingested",
		metric.WithDescription("Total conversational units accepted for processing."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionsApplied, err = m.Int64Counter("ramble.corrections.applied",
		metric.WithDescription("Total word corrections applied during preprocessing by source."),
	); err != nil {
		return nil, err
	}
	if met.ClaimsDerived, err = m.Int64Counter("ramble.claims.derived",
		metric.WithDescription("Total claims written by the resolve stage."),
	); err != nil {
		return nil, err
	}
	if met.InsightsProduced, err = m.Int64Counter("ramble.insights.produced",
		metric.WithDescription("Total observer insights by observer name."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.TaskErrors, err = m.Int64Counter("ramble.task.errors",
		metric.WithDescription("Total failed pipeline tasks by task name."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InFlightUnits, err = m.Int64UpDownCounter("ramble.units.in_flight",
		metric.WithDescription("Units currently being processed by the worker."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("ramble.http.request.duration",
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

// RecordStage records one pipeline task execution: its latency and, when the
// task failed, an error counter increment.
func (m *Metrics) RecordStage(ctx context.Context, task string, seconds float64, err error) {
	attrs := metric.WithAttributes(attribute.String("task", task))
	m.StageDuration.Record(ctx, seconds, attrs)
	if err != nil {
		m.TaskErrors.Add(ctx, 1, attrs)
	}
}

// RecordLLMRequest records a model API call with the standard attribute set.
func (m *Metrics) RecordLLMRequest(ctx context.Context, tier, status string, seconds float64) {
	m.LLMRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tier", tier),
			attribute.String("status", status),
		),
	)
	m.LLMDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordCorrections records corrections applied during preprocessing.
func (m *Metrics) RecordCorrections(ctx context.Context, source string, n int) {
	if n <= 0 {
		return
	}
	m.CorrectionsApplied.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordInsights records observer output counts.
func (m *Metrics) RecordInsights(ctx context.Context, observer string, n int) {
	if n <= 0 {
		return
	}
	m.InsightsProduced.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("observer", observer)),
	)
}
