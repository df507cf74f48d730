// Package metrics exposes Prometheus counters for auth, expense and family
// operations plus per-route HTTP request metrics. Each Metrics owns its
// registry; a nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "depensify"

// Outcomes recorded with auth and domain operations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	AuthAttempts      *prometheus.CounterVec
	ExpenseOps        *prometheus.CounterVec
	FamilyOps         *prometheus.CounterVec
	PermissionDenials *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Register and login attempts by operation and outcome.",
		}, []string{"op", "outcome"}),
		ExpenseOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expenses",
			Name:      "operations_total",
			Help:      "Expense operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		FamilyOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "family",
			Name:      "operations_total",
			Help:      "Family lifecycle operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		PermissionDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "denials_total",
			Help:      "Family permission checks that failed, by action.",
		}, []string{"action"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AuthAttempts,
		m.ExpenseOps,
		m.FamilyOps,
		m.PermissionDenials,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the registry behind Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Auth records a register or login attempt.
func (m *Metrics) Auth(op string, err error) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(op, outcome(err)).Inc()
}

// Expense records an expense operation.
func (m *Metrics) Expense(op string, err error) {
	if m == nil {
		return
	}
	m.ExpenseOps.WithLabelValues(op, outcome(err)).Inc()
}

// Family records a family lifecycle operation.
func (m *Metrics) Family(op string, err error) {
	if m == nil {
		return
	}
	m.FamilyOps.WithLabelValues(op, outcome(err)).Inc()
}

// Denied records a failed permission check.
func (m *Metrics) Denied(action string) {
	if m == nil {
		return
	}
	m.PermissionDenials.WithLabelValues(action).Inc()
}

// Middleware records request count and latency labelled with the chi route
// pattern, so /api/expenses/{id} is one series regardless of id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
