package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cdr-indicators-etl/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level   string
		enabled slog.Level
		hidden  slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warning", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"verbose", slog.LevelInfo, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "json"})
			assert.Same(t, logger, slog.Default())
			assert.True(t, logger.Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Enabled(context.Background(), tt.hidden))
		})
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	_, ok := logger.Handler().(*slog.TextHandler)
	assert.True(t, ok)
}

func TestMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RunsTotal.WithLabelValues("success").Inc()
	a.LoaderWrites.WithLabelValues("file", "success").Add(2)

	assert.InDelta(t, 1, testutil.ToFloat64(a.RunsTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(a.LoaderWrites.WithLabelValues("file", "success")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.RunsTotal.WithLabelValues("success")), 0)
}

func TestPush(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetricsForTesting()
	m.StageRows.WithLabelValues("cumulate").Set(42)

	require.NoError(t, m.Push(context.Background(), srv.URL, "cdr-indicators-etl"))
	assert.Equal(t, "/metrics/job/cdr-indicators-etl", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMetricsForTesting().Push(context.Background(), srv.URL, "cdr-indicators-etl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
