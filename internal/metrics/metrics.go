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

const namespace = "orderflow"

// Metrics holds every collector exported by the service.
type Metrics struct {
	registry *prometheus.Registry

	jobsStarted  *prometheus.CounterVec
	jobsFinished *prometheus.CounterVec
	jobsRetried  *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobsInFlight *prometheus.GaugeVec

	transitions  *prometheus.CounterVec
	gatewayCalls *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		jobsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Job attempts started",
		}, []string{"queue", "kind"}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Job attempts finished by outcome",
		}, []string{"queue", "kind", "outcome"}),
		jobsRetried: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_retried_total",
			Help:      "Job attempts scheduled for retry",
		}, []string{"queue", "kind"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of a single job attempt",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"queue", "kind"}),
		jobsInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Job attempts currently running",
		}, []string{"queue"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by target status and result",
		}, []string{"to", "result"}),
		gatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Payment gateway calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) JobStarted(queue, kind string) {
	m.jobsStarted.WithLabelValues(queue, kind).Inc()
	m.jobsInFlight.WithLabelValues(queue).Inc()
}

func (m *Metrics) JobFinished(queue, kind, outcome string, elapsed time.Duration) {
	m.jobsInFlight.WithLabelValues(queue).Dec()
	m.jobsFinished.WithLabelValues(queue, kind, outcome).Inc()
	m.jobDuration.WithLabelValues(queue, kind).Observe(elapsed.Seconds())
}

func (m *Metrics) JobRetried(queue, kind string) {
	m.jobsRetried.WithLabelValues(queue, kind).Inc()
}

// OrderTransition counts an applied or rejected status change.
func (m *Metrics) OrderTransition(to string, applied bool) {
	result := "applied"
	if !applied {
		result = "rejected"
	}
	m.transitions.WithLabelValues(to, result).Inc()
}

// GatewayCall counts a payment gateway request.
func (m *Metrics) GatewayCall(operation string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.gatewayCalls.WithLabelValues(operation, outcome).Inc()
}

// HTTPRequest records a served request.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}
