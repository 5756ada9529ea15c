package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cumgpa/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization_Disabled(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelInitialization_Enabled(t *testing.T) {
	var traces bytes.Buffer
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "stdout"
	cfg.TraceWriter = &traces
	cfg.EnableMetrics = true

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)

	require.NotNil(t, providers.TracerProvider)
	require.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.PrometheusHTTP)

	ctx, span := providers.Tracer.Start(context.Background(), "combine")
	assert.True(t, span.IsRecording())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))

	SetSpanAttributes(ctx, map[string]interface{}{"students": 3, "rounding": "half_even", "ratio": 0.5, "ok": true})
	RecordError(ctx, errors.New("boom"))
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, providers.Shutdown(ctx))

	assert.Contains(t, traces.String(), `"Name":"combine"`)
}

func TestOTelInitialization_UnsupportedExporter(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "zipkin"

	_, err := InitializeOTel(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestOTelConfigFrom(t *testing.T) {
	tests := []struct {
		name        string
		in          config.TelemetryConfig
		wantTrace   string
		wantMetrics bool
	}{
		{name: "all off", in: config.TelemetryConfig{Tracing: "none"}, wantTrace: "none"},
		{name: "metrics flag", in: config.TelemetryConfig{Tracing: "none", Metrics: true}, wantTrace: "none", wantMetrics: true},
		{name: "metrics address implies metrics", in: config.TelemetryConfig{Tracing: "stdout", MetricsAddr: ":9464"}, wantTrace: "stdout", wantMetrics: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oc := OTelConfigFrom(tt.in)
			assert.Equal(t, tt.wantTrace, oc.TraceExporter)
			assert.Equal(t, tt.wantMetrics, oc.EnableMetrics)
			assert.Equal(t, config.AppName, oc.ServiceName)
		})
	}
}

func TestPipelineMetrics_PrometheusExport(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableMetrics = true

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	pm, err := NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordRows(ctx, "student_marks", 10)
	pm.RecordDropped(ctx, "no_course_info", 2)
	pm.RecordEligible(ctx, "current", 7)
	pm.RecordStudents(ctx, 3)
	pm.RecordSchemaViolation(ctx, "assemble")
	pm.StartStage(ctx, "assemble")()

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cumgpa_rows_read_total")
	assert.Contains(t, string(body), `source="student_marks"`)
	assert.Contains(t, string(body), "cumgpa_stage_duration_seconds")
}

func TestPipelineMetrics_Status(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)

	pm, err := NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	assert.Equal(t, "idle", pm.Status().State)

	ctx := context.Background()
	pm.Begin("run-9")
	done := pm.StartStage(ctx, "load_current_year")
	pm.RecordRows(ctx, "student_marks", 4)

	snap := pm.Status()
	assert.Equal(t, "running", snap.State)
	assert.Equal(t, "load_current_year", snap.Stage)
	assert.Equal(t, 4, snap.RowsRead)
	require.NotNil(t, snap.StartedAt)

	done()
	pm.Finish(errors.New("schema"))

	snap = pm.Status()
	assert.Equal(t, "failed", snap.State)
	assert.Empty(t, snap.Stage)
	assert.Equal(t, []string{"load_current_year"}, snap.CompletedStages)
	assert.Equal(t, "schema", snap.Error)
	assert.NotNil(t, snap.FinishedAt)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var pm *PipelineMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		pm.Begin("x")
		pm.RecordRows(ctx, "s", 1)
		pm.RecordDropped(ctx, "r", 1)
		pm.RecordEligible(ctx, "d", 1)
		pm.RecordStudents(ctx, 1)
		pm.RecordSchemaViolation(ctx, "s")
		pm.StartStage(ctx, "s")()
		pm.Finish(nil)
	})
	assert.Equal(t, RunSnapshot{}, pm.Status())
}
