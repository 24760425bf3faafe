package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestValidateAnalysisID(t *testing.T) {
	require.NoError(t, ValidateAnalysisID("call1"))
	require.NoError(t, ValidateAnalysisID("call..v2.json"))
	require.ErrorContains(t, ValidateAnalysisID("../secret"), "analysis_id")
	require.ErrorContains(t, ValidateAnalysisID(".."), "traversal")
}

func TestValidateLimit(t *testing.T) {
	require.Equal(t, 50, ValidateLimit(0))
	require.Equal(t, 10, ValidateLimit(10))
	require.Equal(t, 500, ValidateLimit(10000))
}

type failing struct{}

func (failing) Check(context.Context) error { return errors.New("down") }

func TestHealthHandler(t *testing.T) {
	dir := t.TempDir()
	h := HealthHandler(map[string]Checker{"audio_dir": &DirChecker{Dir: dir}})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"healthy"`)

	h = HealthHandler(map[string]Checker{
		"audio_dir": &DirChecker{Dir: filepath.Join(dir, "missing")},
		"database":  failing{},
	})
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "down")
}

func TestReadinessHandler(t *testing.T) {
	dir := t.TempDir()
	ready := ReadinessHandler(map[string]Checker{"audio_dir": &DirChecker{Dir: dir}})
	rec := httptest.NewRecorder()
	ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	ready = ReadinessHandler(map[string]Checker{
		"results_dir": &DirChecker{Dir: filepath.Join(dir, "gone")},
		"database":    failing{},
		"audio_dir":   &DirChecker{Dir: dir},
	})
	rec = httptest.NewRecorder()
	ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"not_ready","failing":["database","results_dir"]}`, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "down")
}

func TestRunChecksWithoutCheckers(t *testing.T) {
	report := RunChecks(context.Background(), nil)
	require.True(t, report.Healthy())
	require.Empty(t, report.Checks)
}

func TestLivenessHandler(t *testing.T) {
	live := LivenessHandler(time.Now().Add(-90 * time.Second))
	rec := httptest.NewRecorder()
	live(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body struct {
		Status string `json:"status"`
		Uptime int64  `json:"uptime_seconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "alive", body.Status)
	require.GreaterOrEqual(t, body.Uptime, int64(90))
}

func TestMetricsRecordsOutcomes(t *testing.T) {
	m := NewMetrics()
	m.AnalysisFinished("success", 2*time.Second)
	m.AnalysisFinished("parse", time.Second)
	m.AnalysisFinished("success", time.Second)
	m.UploadStored()
	m.AudioChanged("created")

	require.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("parse")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.WatcherEvents.WithLabelValues("created")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "callcenter_analyses_total")
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "hi")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list_audio", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	require.Contains(t, buf.String(), `"status":418`)
	require.Contains(t, buf.String(), seen)

	req := httptest.NewRequest(http.MethodGet, "/list_audio", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", seen)
}
