// Package metrics implements the WorkflowMetrics port with Prometheus
// collectors and exposes them over HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WorkflowMetrics = (*Recorder)(nil)

const namespace = "subpanel"

// Recorder owns a private registry so tests can create independent instances.
type Recorder struct {
	registry *prometheus.Registry

	workflowRuns     *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec
	transactions     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with all collectors registered, including
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		workflowRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workflow",
				Name:      "runs_total",
				Help:      "Total number of subscription workflow runs.",
			},
			[]string{"action", "outcome"},
		),
		workflowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "workflow",
				Name:      "duration_seconds",
				Help:      "Wall time of subscription workflows, including block inclusion waits.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
			},
			[]string{"action"},
		),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chain",
				Name:      "transactions_total",
				Help:      "Transactions waited on, by workflow step and result.",
			},
			[]string{"step", "succeeded"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"method"},
		),
	}

	r.registry.MustRegister(
		r.workflowRuns,
		r.workflowDuration,
		r.transactions,
		r.httpRequests,
		r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveWorkflow records one finished workflow.
func (r *Recorder) ObserveWorkflow(action model.Action, outcome model.Outcome, elapsed time.Duration) {
	r.workflowRuns.WithLabelValues(string(action), string(outcome)).Inc()
	r.workflowDuration.WithLabelValues(string(action)).Observe(elapsed.Seconds())
}

// ObserveTx records one transaction wait.
func (r *Recorder) ObserveTx(step string, succeeded bool) {
	r.transactions.WithLabelValues(step, strconv.FormatBool(succeeded)).Inc()
}

// ObserveHTTP records one served HTTP request.
func (r *Recorder) ObserveHTTP(method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler returns the /metrics endpoint for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
