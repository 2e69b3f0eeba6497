package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/igorsal/commit-bridge/internal/interfaces"
)

const namespace = "commit_bridge"

// PrometheusCollector implements the MetricsCollector interface using Prometheus
type PrometheusCollector struct {
	factory    promauto.Factory
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusCollector creates a collector registering its metrics on reg.
// Pass prometheus.DefaultRegisterer to expose them on /metrics.
func NewPrometheusCollector(reg prometheus.Registerer) interfaces.MetricsCollector {
	collector := &PrometheusCollector{
		factory:    promauto.With(reg),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	collector.initializeMetrics()

	return collector
}

func (p *PrometheusCollector) initializeMetrics() {
	// HTTP request metrics
	p.counters["http_requests_total"] = p.factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	p.histograms["http_request_duration_seconds"] = p.factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Tracker API metrics
	p.counters["tracker_requests_total"] = p.factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracker_requests_total",
			Help:      "Total number of issue tracker API requests",
		},
		[]string{"service", "operation", "status"},
	)

	p.histograms["tracker_request_duration_seconds"] = p.factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracker_request_duration_seconds",
			Help:      "Issue tracker API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"service", "operation"},
	)

	// Webhook pipeline metrics
	p.counters["webhook_events_total"] = p.factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by provider and outcome kind",
		},
		[]string{"provider", "kind"}, // kind: push, branch_create, pong, ignored, rejected_auth, rejected_parse
	)

	p.counters["issue_actions_total"] = p.factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_actions_total",
			Help:      "Per-issue tracker actions by result",
		},
		[]string{"provider", "action", "result"}, // action: comment, status; result: ok, failed, skipped
	)

	p.gauges["status_mapping_entries"] = p.factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status_mapping_entries",
			Help:      "Number of logical statuses with a configured tracker status",
		},
		[]string{},
	)

	// Circuit breaker metrics
	p.gauges["circuit_breaker_state"] = p.factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)
}

// IncrementCounter increments a counter metric
func (p *PrometheusCollector) IncrementCounter(name string, labels map[string]string) {
	counter, exists := p.counters[name]
	if !exists {
		return
	}

	counter.With(labels).Inc()
}

// RecordDuration records a duration in a histogram
func (p *PrometheusCollector) RecordDuration(name string, duration float64, labels map[string]string) {
	histogram, exists := p.histograms[name]
	if !exists {
		return
	}

	histogram.With(labels).Observe(duration)
}

// SetGauge sets a gauge value
func (p *PrometheusCollector) SetGauge(name string, value float64, labels map[string]string) {
	gauge, exists := p.gauges[name]
	if !exists {
		return
	}

	gauge.With(labels).Set(value)
}
