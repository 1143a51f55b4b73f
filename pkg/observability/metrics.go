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

	// Validation metrics
	ValidationsTotal      *prometheus.CounterVec
	ValidationErrorsTotal *prometheus.CounterVec

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	JobsSweptTotal     prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// gets a fresh one so parallel tests never collide on the default registerer.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topgen_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "topgen_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topgen_validations_total",
				Help: "Total number of configuration validations by result",
			},
			[]string{"result"},
		),
		ValidationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topgen_validation_errors_total",
				Help: "Total number of validation errors by stage",
			},
			[]string{"stage"},
		),
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topgen_generations_total",
				Help: "Total number of RTL generation jobs by status",
			},
			[]string{"status"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "topgen_generation_duration_seconds",
				Help:    "RTL generation duration in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		JobsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "topgen_jobs_swept_total",
				Help: "Total number of expired job directories removed",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ValidationsTotal,
		m.ValidationErrorsTotal,
		m.GenerationsTotal,
		m.GenerationDuration,
		m.JobsSweptTotal,
	)

	return m
}

// Registry returns the registry the metrics were registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordValidation records one validation outcome. Errors are counted against
// the stage that reported them.
func (m *Metrics) RecordValidation(valid bool, stage string, errorCount int) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.ValidationsTotal.WithLabelValues(result).Inc()
	if errorCount > 0 {
		m.ValidationErrorsTotal.WithLabelValues(stage).Add(float64(errorCount))
	}
}

// RecordGeneration records a finished generation run
func (m *Metrics) RecordGeneration(status string, duration time.Duration) {
	m.GenerationsTotal.WithLabelValues(status).Inc()
	m.GenerationDuration.Observe(duration.Seconds())
}

// RecordJobsSwept counts job directories removed by the sweeper
func (m *Metrics) RecordJobsSwept(count int) {
	if count > 0 {
		m.JobsSweptTotal.Add(float64(count))
	}
}
