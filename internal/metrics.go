package internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for HTTP requests and ledger activity
type Metrics struct {
	reqTotal   *prometheus.CounterVec
	reqLatency *prometheus.HistogramVec
	mutations  *prometheus.CounterVec
	logins     *prometheus.CounterVec
	exports    *prometheus.CounterVec
	imported   prometheus.Counter
	registry   *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with a private Prometheus registry.
// activeSessions, when not nil, is sampled for the ledger_active_sessions gauge.
func NewMetrics(activeSessions func() int) *Metrics {
	registry := prometheus.NewRegistry()

	reqTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	reqLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	mutations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_project_mutations_total",
			Help: "Project creates, updates and deletes",
		},
		[]string{"operation"},
	)

	logins := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	exports := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_exports_total",
			Help: "Ledger exports by format and mode",
		},
		[]string{"format", "mode"},
	)

	imported := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_imported_projects_total",
		Help: "Projects stored by spreadsheet imports",
	})

	registry.MustRegister(reqTotal, reqLatency, mutations, logins, exports, imported)

	if activeSessions != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ledger_active_sessions",
				Help: "Sessions with a live view controller",
			},
			func() float64 { return float64(activeSessions()) },
		))
	}

	return &Metrics{
		reqTotal:   reqTotal,
		reqLatency: reqLatency,
		mutations:  mutations,
		logins:     logins,
		exports:    exports,
		imported:   imported,
		registry:   registry,
	}
}

// Middleware returns a Chi middleware that collects metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// Prefer the route pattern so ids do not explode label cardinality
			path := r.URL.Path
			if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil && chiCtx.RoutePattern() != "" {
				path = chiCtx.RoutePattern()
			}

			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			status := strconv.Itoa(code)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns an http.Handler that serves Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordMutation(operation string) {
	m.mutations.WithLabelValues(operation).Inc()
}

// RecordLogin counts a login attempt; result is "success", "failure" or "throttled".
func (m *Metrics) RecordLogin(result string) {
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordExport(format, mode string) {
	m.exports.WithLabelValues(format, mode).Inc()
}

func (m *Metrics) RecordImport(n int) {
	m.imported.Add(float64(n))
}
