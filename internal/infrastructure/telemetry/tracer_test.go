package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "test-service",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestTracerProvider_EnableSpanProfilesWhenDisabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.IsSpanProfilesEnabled())
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{"always", 1.0, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{"above one", 2.5, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{"never", 0, sdktrace.ParentBased(sdktrace.NeverSample()).Description()},
		{"ratio", 0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newSampler(tt.ratio).Description())
		})
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("pdf-on-submit")
	require.NoError(t, err)

	attrs := res.Set()
	name, ok := attrs.Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "pdf-on-submit", name.AsString())
	version, ok := attrs.Value("service.version")
	require.True(t, ok)
	assert.Equal(t, ServiceVersion, version.AsString())
}
