package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

// sumValue returns the value of the int64 sum data point whose attribute key
// equals value, or -1 when absent.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	return -1
}

func TestRecordTranscription(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTranscription(ctx, "whisper", StatusOK, 1200*time.Millisecond)
	m.RecordTranscription(ctx, "whisper", StatusOK, 800*time.Millisecond)
	m.RecordTranscription(ctx, "deepgram", StatusError, 50*time.Millisecond)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "singalong.stt.transcriptions", "status", StatusOK); got != 2 {
		t.Errorf("ok transcriptions = %d, want 2", got)
	}
	if got := sumValue(t, rm, "singalong.stt.transcriptions", "status", StatusError); got != 1 {
		t.Errorf("error transcriptions = %d, want 1", got)
	}

	met := findMetric(rm, "singalong.stt.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration metric is not a float histogram")
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("duration samples = %d, want 3", total)
	}
}

func TestRecordScore(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	for _, s := range []int{0, 55, 100} {
		m.RecordScore(ctx, s)
	}

	rm := collect(t, reader)
	met := findMetric(rm, "singalong.score")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatal("metric is not an int histogram")
	}
	dp := hist.DataPoints[0]
	if dp.Count != 3 {
		t.Errorf("count = %d, want 3", dp.Count)
	}
	if dp.Sum != 155 {
		t.Errorf("sum = %d, want 155", dp.Sum)
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordLyricsLookup(ctx, StatusOK)
	m.RecordLyricsLookup(ctx, StatusNotFound)
	m.RecordLyricsLookup(ctx, StatusNotFound)
	m.RecordLeaderboardSubmission(ctx)
	m.RecordBreakerTransition(ctx, "lrclib", "open")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "singalong.lyrics.lookups", "status", StatusNotFound); got != 2 {
		t.Errorf("not_found lookups = %d, want 2", got)
	}
	if got := sumValue(t, rm, "singalong.leaderboard.submissions", "", ""); got != 1 {
		t.Errorf("submissions = %d, want 1", got)
	}
	if got := sumValue(t, rm, "singalong.circuit_breaker.transitions", "name", "lrclib"); got != 1 {
		t.Errorf("breaker transitions = %d, want 1", got)
	}
}

func TestActiveTranscriptionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveTranscriptions.Add(ctx, 1)
	m.ActiveTranscriptions.Add(ctx, 1)
	m.ActiveTranscriptions.Add(ctx, -1)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "singalong.stt.active", "", ""); got != 1 {
		t.Errorf("active = %d, want 1", got)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.HTTPRequestDuration.Record(ctx, 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("route", "GET /healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "singalong.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
