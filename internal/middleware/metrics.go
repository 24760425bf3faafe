package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores application metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestsInProgress prometheus.Gauge

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	UploadsTotal     prometheus.Counter
	WatcherEvents    *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callcenter_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callcenter_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RequestsInProgress: f.NewGauge(prometheus.GaugeOpts{
			Name: "callcenter_http_requests_in_progress",
			Help: "HTTP requests currently being served",
		}),
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callcenter_analyses_total",
			Help: "Finished analyses by outcome",
		}, []string{"outcome"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "callcenter_analysis_duration_seconds",
			Help:    "Wall time of one analysis including the model call",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),
		UploadsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "callcenter_audio_uploads_total",
			Help: "Audio uploads stored",
		}),
		WatcherEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callcenter_audio_watcher_events_total",
			Help: "Audio directory changes seen by the watcher",
		}, []string{"op"}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// AnalysisFinished records one analysis outcome and its duration.
func (m *Metrics) AnalysisFinished(outcome string, elapsed time.Duration) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
}

// UploadStored counts a stored upload.
func (m *Metrics) UploadStored() {
	m.UploadsTotal.Inc()
}

// AudioChanged counts a watcher event.
func (m *Metrics) AudioChanged(op string) {
	m.WatcherEvents.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware tracks request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.RequestsInProgress.Inc()
		defer m.RequestsInProgress.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
