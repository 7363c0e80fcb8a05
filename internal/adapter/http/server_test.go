package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/cdr-indicators-etl/internal/adapter/http"
	"github.com/couchcryptid/cdr-indicators-etl/internal/pipeline"
)

type mockRuns struct {
	err  error
	last *pipeline.Summary
}

func (m *mockRuns) CheckReadiness(_ context.Context) error { return m.err }

func (m *mockRuns) LastRun() (pipeline.Summary, bool) {
	if m.last == nil {
		return pipeline.Summary{}, false
	}
	return *m.last, true
}

func newTestServer(runs *mockRuns) *httpadapter.Server {
	return httpadapter.NewServer(":0", runs, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthzReturns200(t *testing.T) {
	rec, body := get(t, newTestServer(&mockRuns{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec, body := get(t, newTestServer(&mockRuns{}), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec, body := get(t, newTestServer(&mockRuns{err: errors.New("no indicator run has completed yet")}), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no indicator run has completed yet", body["error"])
}

func TestLatestRunReturns404BeforeFirstRun(t *testing.T) {
	rec, body := get(t, newTestServer(&mockRuns{}), "/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no run yet", body["status"])
}

func TestLatestRunReportsSummary(t *testing.T) {
	sum := &pipeline.Summary{
		RunID:     "3f1c",
		StartedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Rows:      2480,
		Warnings:  3,
	}
	rec, body := get(t, newTestServer(&mockRuns{last: sum}), "/runs/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3f1c", body["run_id"])
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "1.5s", body["duration"])
	assert.InDelta(t, 2480, body["rows"], 0)
	assert.NotContains(t, body, "error")
}

func TestLatestRunReportsFailure(t *testing.T) {
	sum := &pipeline.Summary{RunID: "9a2e", Err: errors.New("load warehouse: connection refused")}
	_, body := get(t, newTestServer(&mockRuns{last: sum}), "/runs/latest")
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "load warehouse: connection refused", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := get(t, newTestServer(&mockRuns{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
