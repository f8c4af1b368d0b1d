package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Identity metrics
	RegistrationsTotal prometheus.Counter
	LoginsTotal        *prometheus.CounterVec
	TokenRejectsTotal  *prometheus.CounterVec

	// Catalog metrics
	ApplicationsTotal prometheus.Counter

	// Business gauges, refreshed on a schedule
	UsersTotal         prometheus.Gauge
	OpportunitiesTotal prometheus.Gauge

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RegistrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vhub_registrations_total",
				Help: "Total number of successful user registrations",
			},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vhub_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		TokenRejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vhub_token_rejects_total",
				Help: "Total number of rejected bearer tokens by reason",
			},
			[]string{"reason"},
		),
		ApplicationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vhub_applications_total",
				Help: "Total number of submitted volunteer applications",
			},
		),
		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vhub_users_total",
				Help: "Current number of user accounts",
			},
		),
		OpportunitiesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vhub_opportunities_total",
				Help: "Current number of opportunities",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vhub_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vhub_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RegistrationsTotal,
		m.LoginsTotal,
		m.TokenRejectsTotal,
		m.ApplicationsTotal,
		m.UsersTotal,
		m.OpportunitiesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// TokenRejected counts a rejected bearer token by reason
func (m *Metrics) TokenRejected(reason string) {
	m.TokenRejectsTotal.WithLabelValues(reason).Inc()
}

// Handler returns an HTTP handler exposing the registry in Prometheus format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments request counts and latencies.
// The path label uses the mux route template so cardinality stays bounded.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
