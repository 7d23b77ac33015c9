// Package observe provides observability primitives for cuefollow:
// OpenTelemetry metrics, tracing helpers, an in-process stats collector for
// the /statsz endpoint, and HTTP middleware tying them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so everything can be
// scraped from the standard /metrics endpoint. Observers in this package are
// strictly read-only: nothing here feeds back into tracking decisions.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all cuefollow metrics.
const meterName = "github.com/MrWong99/cuefollow"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SearchDuration tracks wall-clock segment-search latency per batch.
	SearchDuration metric.Float64Histogram

	// BatchesSubmitted counts spoken-word batches accepted into the queue.
	BatchesSubmitted metric.Int64Counter

	// MatchesAccepted counts committed cursor advances.
	MatchesAccepted metric.Int64Counter

	// MatchesRejected counts batches that did not advance the cursor. Use
	// with attribute.String("reason", ...): "no_candidate" or "policy".
	MatchesRejected metric.Int64Counter

	// ListenerFaults counts panics recovered from match listeners.
	ListenerFaults metric.Int64Counter

	// QueueDepth tracks the number of batches waiting in the request queue.
	QueueDepth metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// searchBuckets defines histogram bucket boundaries (in seconds) sized for
// the per-batch CPU budget: most searches land well under 10ms.
var searchBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SearchDuration, err = m.Float64Histogram("cuefollow.search.duration",
		metric.WithDescription("Wall-clock latency of one segment search."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(searchBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BatchesSubmitted, err = m.Int64Counter("cuefollow.batches.submitted",
		metric.WithDescription("Total spoken-word batches accepted into the queue."),
	); err != nil {
		return nil, err
	}
	if met.MatchesAccepted, err = m.Int64Counter("cuefollow.matches.accepted",
		metric.WithDescription("Total committed cursor advances."),
	); err != nil {
		return nil, err
	}
	if met.MatchesRejected, err = m.Int64Counter("cuefollow.matches.rejected",
		metric.WithDescription("Total batches that did not advance the cursor, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ListenerFaults, err = m.Int64Counter("cuefollow.listener.faults",
		metric.WithDescription("Total panics recovered from match listeners."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("cuefollow.queue.depth",
		metric.WithDescription("Batches waiting in the request queue."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("cuefollow.http.request.duration",
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

// RecordSearch records one search latency sample.
func (m *Metrics) RecordSearch(ctx context.Context, d time.Duration) {
	m.SearchDuration.Record(ctx, d.Seconds())
}

// RecordRejection increments the rejected-batch counter with the given
// reason ("no_candidate" or "policy").
func (m *Metrics) RecordRejection(ctx context.Context, reason string) {
	m.MatchesRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
