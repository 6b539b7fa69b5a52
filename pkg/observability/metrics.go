package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	LoginAttemptsTotal       *prometheus.CounterVec
	TicketValidationsTotal   *prometheus.CounterVec
	TicketValidationDuration *prometheus.HistogramVec
	LogoutRequestsTotal      *prometheus.CounterVec
	SingleLogoutTotal        *prometheus.CounterVec

	// Provisioning metrics
	ProvisioningTotal  *prometheus.CounterVec
	UsersCreatedTotal  prometheus.Counter
	GroupsCreatedTotal prometheus.Counter

	// Session metrics
	SessionsActive       prometheus.Gauge
	SessionsCreatedTotal prometheus.Counter
	SessionsExpiredTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "janus_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TicketValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_ticket_validations_total",
				Help: "Ticket validations by protocol version and result",
			},
			[]string{"version", "result"},
		),
		TicketValidationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "janus_ticket_validation_duration_seconds",
				Help:    "Round trip time of CAS ticket validation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"version"},
		),
		LogoutRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_logout_requests_total",
				Help: "Logout requests by outcome (honored, suppressed)",
			},
			[]string{"outcome"},
		),
		SingleLogoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_single_logout_total",
				Help: "Single-logout callbacks by outcome (accepted, rejected)",
			},
			[]string{"outcome"},
		),

		ProvisioningTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_provisioning_operations_total",
				Help: "Provisioning operations by kind and result",
			},
			[]string{"operation", "result"},
		),
		UsersCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "janus_users_created_total",
				Help: "Users created by just-in-time provisioning",
			},
		),
		GroupsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "janus_groups_created_total",
				Help: "Groups created during attribute sync",
			},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "janus_sessions_active",
				Help: "Currently active authentication sessions",
			},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "janus_sessions_created_total",
				Help: "Authentication sessions established",
			},
		),
		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "janus_sessions_expired_total",
				Help: "Authentication sessions removed by expiry cleanup",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.TicketValidationsTotal,
		m.TicketValidationDuration,
		m.LogoutRequestsTotal,
		m.SingleLogoutTotal,
		m.ProvisioningTotal,
		m.UsersCreatedTotal,
		m.GroupsCreatedTotal,
		m.SessionsActive,
		m.SessionsCreatedTotal,
		m.SessionsExpiredTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request metrics
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
