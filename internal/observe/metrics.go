// Package observe provides application-wide observability primitives for the
// sing-along service: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] and [MetricsHandler] so
// that metrics can be scraped from /metrics. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/singalong"

// Status values used with the "status" attribute.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// STTDuration tracks transcription latency. Use with attribute:
	//   attribute.String("provider", ...)
	STTDuration metric.Float64Histogram

	// Transcriptions counts transcription attempts. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	Transcriptions metric.Int64Counter

	// Scores records the final score of every scored performance (0-100).
	Scores metric.Int64Histogram

	// LyricsLookups counts online lyrics lookups at catalog setup. Use with
	// attribute: attribute.String("status", ...)
	LyricsLookups metric.Int64Counter

	// LeaderboardSubmissions counts accepted leaderboard entries.
	LeaderboardSubmissions metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Use with
	// attributes: attribute.String("name", ...), attribute.String("to", ...)
	BreakerTransitions metric.Int64Counter

	// ActiveTranscriptions tracks in-flight transcription requests.
	ActiveTranscriptions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for batch
// transcription of recordings that last up to a few minutes.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// scoreBuckets splits the 0-100 score range into tenths.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.STTDuration, err = m.Float64Histogram("singalong.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Transcriptions, err = m.Int64Counter("singalong.stt.transcriptions",
		metric.WithDescription("Total transcriptions by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.Scores, err = m.Int64Histogram("singalong.score",
		metric.WithDescription("Distribution of performance scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LyricsLookups, err = m.Int64Counter("singalong.lyrics.lookups",
		metric.WithDescription("Total online lyrics lookups by status."),
	); err != nil {
		return nil, err
	}
	if met.LeaderboardSubmissions, err = m.Int64Counter("singalong.leaderboard.submissions",
		metric.WithDescription("Total accepted leaderboard entries."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("singalong.circuit_breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by breaker name and target state."),
	); err != nil {
		return nil, err
	}
	if met.ActiveTranscriptions, err = m.Int64UpDownCounter("singalong.stt.active",
		metric.WithDescription("Number of in-flight transcription requests."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("singalong.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Call it after [InitProvider] so the instruments bind to the SDK
// provider.
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

// RecordTranscription records the outcome and latency of one transcription.
func (m *Metrics) RecordTranscription(ctx context.Context, provider, status string, d time.Duration) {
	m.Transcriptions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
	m.STTDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordScore records a final performance score.
func (m *Metrics) RecordScore(ctx context.Context, score int) {
	m.Scores.Record(ctx, int64(score))
}

// RecordLyricsLookup records one online lyrics lookup.
func (m *Metrics) RecordLyricsLookup(ctx context.Context, status string) {
	m.LyricsLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordLeaderboardSubmission records an accepted leaderboard entry.
func (m *Metrics) RecordLeaderboardSubmission(ctx context.Context) {
	m.LeaderboardSubmissions.Add(ctx, 1)
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("name", name),
			attribute.String("to", to),
		),
	)
}
