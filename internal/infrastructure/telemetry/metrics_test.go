package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := NewMeterProvider(ctx, MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "test-service",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter_Inc(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	ctx := context.Background()

	c, err := NewCounter(mp.Meter("test"), "test_total", "test counter", "{op}")
	require.NoError(t, err)

	c.Inc(ctx, AttrOutcome.String("enqueued"))
	c.Inc(ctx, AttrOutcome.String("enqueued"))
	c.Inc(ctx, AttrOutcome.String("disabled"))

	rm := collect(t, reader)
	v, ok := int64Point(t, rm, "test_total", AttrOutcome.String("enqueued"))
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
	v, ok = int64Point(t, rm, "test_total", AttrOutcome.String("disabled"))
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestHistogram_RecordDuration(t *testing.T) {
	mp, reader := newTestMeterProvider(t)

	h, err := NewHistogram(mp.Meter("test"), "test_duration_seconds", "test histogram", "s", DBDurationBuckets...)
	require.NoError(t, err)

	h.RecordDuration(context.Background(), 20*time.Millisecond)
	h.RecordDuration(context.Background(), 2*time.Second)

	m, ok := findMetric(collect(t, reader), "test_duration_seconds")
	require.True(t, ok)
	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(2), data.DataPoints[0].Count)
	assert.Equal(t, DBDurationBuckets, data.DataPoints[0].Bounds)
	assert.InDelta(t, 2.02, data.DataPoints[0].Sum, 0.0001)
}

func TestGauge_RecordKeepsLastValue(t *testing.T) {
	mp, reader := newTestMeterProvider(t)

	g, err := NewGauge(mp.Meter("test"), "test_depth", "test gauge", "{tasks}")
	require.NoError(t, err)

	g.Record(context.Background(), 7)
	g.Record(context.Background(), 3)

	v, ok := int64Point(t, collect(t, reader), "test_depth")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)
}
