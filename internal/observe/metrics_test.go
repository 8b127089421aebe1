package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

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

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	ready := metric.WithAttributes(attribute.String(AttrOutcome, OutcomeReady))
	notReady := metric.WithAttributes(attribute.String(AttrOutcome, OutcomeNotReady))
	m.Fetches.Add(ctx, 2, ready)
	m.Fetches.Add(ctx, 3, notReady)
	m.Skips.Add(ctx, 1)

	rm := collect(t, reader)

	fetches := findMetric(rm, "trendcard.fetches")
	require.NotNil(t, fetches)
	sum, ok := fetches.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOutcome := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(AttrOutcome)
		byOutcome[v.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), byOutcome[OutcomeReady])
	assert.Equal(t, int64(3), byOutcome[OutcomeNotReady])

	assert.NotNil(t, findMetric(rm, "trendcard.skips"))
}

func TestNarrationDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.NarrationDuration.Record(context.Background(), 4.2)

	rm := collect(t, reader)
	h := findMetric(rm, "trendcard.narration.duration")
	require.NotNil(t, h)

	hist, ok := h.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, "s", h.Unit)
}

func TestActiveSessions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	g := findMetric(rm, "trendcard.active_sessions")
	require.NotNil(t, g)
	sum := g.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestDefaultMetrics(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	assert.Same(t, a, b)
}

func TestProvider_Handler(t *testing.T) {
	ctx := context.Background()
	p, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	m, err := NewMetrics(p.mp)
	require.NoError(t, err)
	m.Skips.Add(ctx, 1)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "trendcard_skips")
}
