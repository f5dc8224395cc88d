// Package metrics exposes Prometheus instrumentation for the verification client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for calls to the verification service.
// All helpers are safe to call on a nil *Metrics.
type Metrics struct {
	// Request latency by endpoint (services, upload, archive, job_status, id_verification)
	RequestLatency *prometheus.HistogramVec

	// Request failures by endpoint and reason (transport, status, decode, signature)
	RequestFailures *prometheus.CounterVec

	// Status polls needed before a job reached a terminal state
	PollAttempts prometheus.Histogram

	// Job outcomes by job type and outcome (submitted, complete, failed, rejected, verified)
	JobOutcome *prometheus.CounterVec

	// Schema lookups by source (cache, remote, default)
	SchemaLookups *prometheus.CounterVec
}

// New registers the client metrics with the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the client metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smileid_request_duration_seconds",
			Help:    "Duration of requests to the verification service by endpoint",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),

		RequestFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smileid_request_failures_total",
			Help: "Total failed requests to the verification service by endpoint and reason",
		}, []string{"endpoint", "reason"}),

		PollAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "smileid_job_status_poll_attempts",
			Help:    "Number of job status polls issued per polled job",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 20, 40},
		}),

		JobOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smileid_job_outcomes_total",
			Help: "Total job outcomes by job type and outcome",
		}, []string{"job_type", "outcome"}),

		SchemaLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smileid_schema_lookups_total",
			Help: "Total validation schema lookups by source",
		}, []string{"source"}),
	}
}

// ObserveRequestLatency records the duration of one request.
func (m *Metrics) ObserveRequestLatency(endpoint string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

// IncrementRequestFailure records a failed request.
func (m *Metrics) IncrementRequestFailure(endpoint, reason string) {
	if m != nil {
		m.RequestFailures.WithLabelValues(endpoint, reason).Inc()
	}
}

// ObservePollAttempts records how many polls a job needed.
func (m *Metrics) ObservePollAttempts(n int) {
	if m != nil {
		m.PollAttempts.Observe(float64(n))
	}
}

// IncrementOutcome records a job outcome.
func (m *Metrics) IncrementOutcome(jobType, outcome string) {
	if m != nil {
		m.JobOutcome.WithLabelValues(jobType, outcome).Inc()
	}
}

// IncrementSchemaLookup records where a validation schema came from.
func (m *Metrics) IncrementSchemaLookup(source string) {
	if m != nil {
		m.SchemaLookups.WithLabelValues(source).Inc()
	}
}
