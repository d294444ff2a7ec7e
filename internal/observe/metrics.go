// Package observe provides observability primitives for typestream:
// OpenTelemetry metrics and the provider setup that exposes them through a
// Prometheus /metrics endpoint.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all typestream
// metrics.
const meterName = "github.com/davfehr/typestream"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// BatchDuration tracks end-to-end handling latency of one transcript
	// batch (stabilize + correct + diff + inject).
	BatchDuration metric.Float64Histogram

	// StageDuration tracks per-stage processing latency within one batch
	// (stabilize, correct, inject). Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// Batches counts transcript batches by kind. Use with attribute:
	//   attribute.String("kind", "partial"|"final")
	Batches metric.Int64Counter

	// WordsCommitted counts words promoted to stable.
	WordsCommitted metric.Int64Counter

	// Corrections counts applied corrections by pipeline stage. Use with
	// attribute: attribute.String("stage", ...)
	Corrections metric.Int64Counter

	// CharsDeleted counts backspaces issued by the injector.
	CharsDeleted metric.Int64Counter

	// CharsTyped counts characters typed by the injector.
	CharsTyped metric.Int64Counter

	// EngineErrors counts recognition engine errors. Use with attribute:
	//   attribute.String("engine", ...)
	EngineErrors metric.Int64Counter

	// ActiveSessions tracks the number of live dictation sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for per-batch text processing latencies.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BatchDuration, err = m.Float64Histogram("typestream.batch.duration",
		metric.WithDescription("End-to-end handling latency of one transcript batch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("typestream.stage.duration",
		metric.WithDescription("Per-stage batch processing latency (stabilize, correct, inject)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Batches, err = m.Int64Counter("typestream.batches",
		metric.WithDescription("Total transcript batches by kind (partial, final)."),
	); err != nil {
		return nil, err
	}
	if met.WordsCommitted, err = m.Int64Counter("typestream.words.committed",
		metric.WithDescription("Total words promoted to stable."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("typestream.corrections",
		metric.WithDescription("Total applied corrections by pipeline stage."),
	); err != nil {
		return nil, err
	}
	if met.CharsDeleted, err = m.Int64Counter("typestream.chars.deleted",
		metric.WithDescription("Total backspaces issued by the injector."),
	); err != nil {
		return nil, err
	}
	if met.CharsTyped, err = m.Int64Counter("typestream.chars.typed",
		metric.WithDescription("Total characters typed by the injector."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("typestream.engine.errors",
		metric.WithDescription("Total recognition engine errors by engine."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("typestream.active_sessions",
		metric.WithDescription("Number of live dictation sessions."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// RecordBatch records one transcript batch of the given kind.
func (m *Metrics) RecordBatch(ctx context.Context, kind string) {
	m.Batches.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordStage records the latency of one processing stage of a batch.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordCorrection records one applied correction for a pipeline stage.
func (m *Metrics) RecordCorrection(ctx context.Context, stage string) {
	m.Corrections.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordInstruction records the keystroke cost of one injection instruction.
func (m *Metrics) RecordInstruction(ctx context.Context, deleted, typed int) {
	if deleted > 0 {
		m.CharsDeleted.Add(ctx, int64(deleted))
	}
	if typed > 0 {
		m.CharsTyped.Add(ctx, int64(typed))
	}
}

// RecordEngineError records a recognition engine failure.
func (m *Metrics) RecordEngineError(ctx context.Context, engine string) {
	m.EngineErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("engine", engine)))
}
