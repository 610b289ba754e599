// Package metrics defines the Prometheus metrics exported by the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Conversions by entry point and outcome
	Conversions *prometheus.CounterVec

	// Reminder rows written and removed
	RemindersCreated prometheus.Counter
	RemindersDeleted *prometheus.CounterVec

	// HTTP request latency by route pattern, method and status
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_conversions_total",
			Help: "Lunar to Gregorian conversions by operation and outcome",
		}, []string{"operation", "outcome"}), // operation: "convert", "project"

		RemindersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lunar_reminders_created_total",
			Help: "Reminder entries created for lunar birthdays",
		}),

		RemindersDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_reminders_deleted_total",
			Help: "Reminder entries deleted by reason",
		}, []string{"reason"}), // reason: "clear", "birthday", "prune"

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lunar_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncConversion records one conversion outcome.
func (m *Metrics) IncConversion(operation, outcome string) {
	if m != nil {
		m.Conversions.WithLabelValues(operation, outcome).Inc()
	}
}

// AddRemindersCreated records n new reminder entries.
func (m *Metrics) AddRemindersCreated(n int) {
	if m != nil && n > 0 {
		m.RemindersCreated.Add(float64(n))
	}
}

// AddRemindersDeleted records n removed reminder entries.
func (m *Metrics) AddRemindersDeleted(reason string, n int64) {
	if m != nil && n > 0 {
		m.RemindersDeleted.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
