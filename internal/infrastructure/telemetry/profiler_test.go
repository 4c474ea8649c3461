package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "pdf-on-submit"}, zap.NewNop())
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zap.NewNop())
	assert.ErrorContains(t, err, "application name")
}

func TestSanitizeLabels(t *testing.T) {
	long := make([]byte, MaxLabelValueLength+10)
	for i := range long {
		long[i] = 'x'
	}

	pairs := sanitizeLabels(map[string]string{
		"Doc-Type":   "Sales Invoice",
		"job":        "attach_pdf",
		"job_id":     "0b5c",
		"empty":      "",
		"route":      string(long),
		"!!!":        "dropped",
		"request_id": "abc",
	})

	assert.Equal(t, []string{
		"doc_type", "Sales Invoice",
		"job", "attach_pdf",
		"route", string(long[:MaxLabelValueLength]),
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestWithProfilingLabels(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), JobLabels("attach_pdf", "Dunning"), func(ctx context.Context) {
		called = true
		v, ok := pprof.Label(ctx, ProfilingLabelDocType)
		assert.True(t, ok)
		assert.Equal(t, "Dunning", v)
	})
	assert.True(t, called)

	called = false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestHTTPRequestLabels(t *testing.T) {
	assert.Equal(t, map[string]string{
		ProfilingLabelRoute:  "/api/v1/hooks/:slug/submit",
		ProfilingLabelMethod: "POST",
	}, HTTPRequestLabels("/api/v1/hooks/:slug/submit", "POST"))
}
