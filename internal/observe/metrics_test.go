package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestRecordBatch(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordBatch(ctx, "partial")
	m.RecordBatch(ctx, "partial")
	m.RecordBatch(ctx, "final")

	rm := collect(t, reader)
	data, ok := findMetric(rm, "typestream.batches")
	if !ok {
		t.Fatal("typestream.batches not found")
	}
	sum, ok := data.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", data.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total batches = %d, want 3", total)
	}
}

func TestRecordInstruction(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordInstruction(ctx, 3, 10)
	m.RecordInstruction(ctx, 0, 5)

	rm := collect(t, reader)
	deleted, ok := findMetric(rm, "typestream.chars.deleted")
	if !ok {
		t.Fatal("typestream.chars.deleted not found")
	}
	if sum := deleted.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 3 {
		t.Errorf("chars deleted = %d, want 3", sum.DataPoints[0].Value)
	}
	typed, ok := findMetric(rm, "typestream.chars.typed")
	if !ok {
		t.Fatal("typestream.chars.typed not found")
	}
	if sum := typed.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 15 {
		t.Errorf("chars typed = %d, want 15", sum.DataPoints[0].Value)
	}
}

func TestRecordCorrectionByStage(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordCorrection(ctx, "fuzzy")
	m.RecordCorrection(ctx, "truecase")

	rm := collect(t, reader)
	data, ok := findMetric(rm, "typestream.corrections")
	if !ok {
		t.Fatal("typestream.corrections not found")
	}
	sum := data.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Errorf("got %d stage series, want 2", len(sum.DataPoints))
	}
}

func TestRecordStage(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordStage(ctx, "stabilize", 50*time.Microsecond)
	m.RecordStage(ctx, "correct", 200*time.Microsecond)
	m.RecordStage(ctx, "correct", 150*time.Microsecond)

	rm := collect(t, reader)
	data, ok := findMetric(rm, "typestream.stage.duration")
	if !ok {
		t.Fatal("typestream.stage.duration not found")
	}
	hist, ok := data.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", data.Data)
	}
	if len(hist.DataPoints) != 2 {
		t.Fatalf("got %d stage series, want 2", len(hist.DataPoints))
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("total recordings = %d, want 3", total)
	}
}
