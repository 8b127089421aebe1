// Package observe provides OpenTelemetry metric instruments for the trend
// cycle and a Prometheus exporter bridge so they can be scraped on /metrics.
//
// Tests should build their own [Metrics] with [NewMetrics] and a
// ManualReader-backed provider instead of using [DefaultMetrics].
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all trendcard metrics.
const meterName = "github.com/abdulachik/trendcard"

// Attribute keys and values shared by the instruments.
const (
	AttrOutcome = "outcome"
	AttrRoom    = "room"

	OutcomeReady    = "ready"
	OutcomeNotReady = "not_ready"
)

// Metrics holds the metric instruments of the trend cycle.
type Metrics struct {
	// Fetches counts trend fetches by room and outcome (ready, not_ready).
	Fetches metric.Int64Counter

	// Narrations counts finished narrations by room and outcome (ended, errored).
	Narrations metric.Int64Counter

	// NarrationDuration tracks time from session start to its terminal event.
	NarrationDuration metric.Float64Histogram

	// Skips counts fetches whose description matched the last narration.
	Skips metric.Int64Counter

	// AnnounceFailures counts swallowed /startVoice failures.
	AnnounceFailures metric.Int64Counter

	// ActiveSessions is the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// narrationBuckets are histogram boundaries in seconds sized for spoken
// product descriptions.
var narrationBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Fetches, err = m.Int64Counter("trendcard.fetches",
		metric.WithDescription("Trend fetches by room and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Narrations, err = m.Int64Counter("trendcard.narrations",
		metric.WithDescription("Finished narrations by room and terminal event."),
	); err != nil {
		return nil, err
	}
	if met.NarrationDuration, err = m.Float64Histogram("trendcard.narration.duration",
		metric.WithDescription("Duration of narration sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(narrationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Skips, err = m.Int64Counter("trendcard.skips",
		metric.WithDescription("Fetches skipped because the description was unchanged."),
	); err != nil {
		return nil, err
	}
	if met.AnnounceFailures, err = m.Int64Counter("trendcard.announce.failures",
		metric.WithDescription("Failed voice-start announcements."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("trendcard.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics built on the global meter
// provider. Panics if instrument creation fails.
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
