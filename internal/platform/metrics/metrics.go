// Package metrics exposes Prometheus collectors for sessions, notifications
// and HTTP traffic on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/icu"
)

const namespace = "icusim"

type Metrics struct {
	registry *prometheus.Registry

	sessionsTotal     *prometheus.CounterVec
	unknownCases      prometheus.Counter
	notificationsSent *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

var _ icu.MetricsRecorder = (*Metrics)(nil)

// New builds the collectors. Go runtime and process collectors are included
// when withRuntime is set.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions simulated by case and risk label.",
		}, []string{"case", "risk"}),
		unknownCases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_case_total",
			Help:      "Session requests rejected for an unsupported case id.",
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and status.",
		}, []string{"channel", "status"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.sessionsTotal,
		m.unknownCases,
		m.notificationsSent,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveSession(caseID int, risk icu.RiskLevel) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(strconv.Itoa(caseID), risk.Label()).Inc()
}

func (m *Metrics) ObserveUnknownCase() {
	if m == nil {
		return
	}
	m.unknownCases.Inc()
}

// ObserveNotification counts one delivery attempt.
func (m *Metrics) ObserveNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(channel, status).Inc()
}

// Middleware records request counts and durations keyed by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			m.httpRequestsTotal.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
