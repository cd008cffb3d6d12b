// Package metrics exposes Prometheus counters for facade operations and
// insight generation. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	operations     *prometheus.CounterVec
	insights       *prometheus.CounterVec
	insightLatency *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp",
			Name:      "facade_operations_total",
			Help:      "Facade operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		insights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp",
			Name:      "insight_requests_total",
			Help:      "Insight generations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		insightLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "erp",
			Name:      "insight_duration_seconds",
			Help:      "Latency of summarizer calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"kind"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.insights,
		m.insightLatency,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveInsight(kind string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.insights.WithLabelValues(kind, outcome).Inc()
	m.insightLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}
