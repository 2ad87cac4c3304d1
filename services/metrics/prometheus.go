package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/masomo-lms/core/query"
)

// QueryMetrics exports query outcomes to Prometheus, labelled by key scope.
type QueryMetrics struct {
	registry *prometheus.Registry

	failures    *prometheus.CounterVec
	successes   *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
	consecutive *prometheus.GaugeVec
}

var _ query.Observer = (*QueryMetrics)(nil)

func NewQueryMetrics() *QueryMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &QueryMetrics{
		registry: reg,
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masomo_query_failures_total",
				Help: "Total number of failed query attempts",
			},
			[]string{"scope"},
		),
		successes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masomo_query_successes_total",
				Help: "Total number of successful query attempts",
			},
			[]string{"scope"},
		),
		suppressed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masomo_query_suppressed_total",
				Help: "Total number of fetches skipped because their key was suppressed",
			},
			[]string{"scope"},
		),
		consecutive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "masomo_query_consecutive_failures",
				Help: "Consecutive failures of the last key attempted in a scope",
			},
			[]string{"scope"},
		),
	}
}

func (m *QueryMetrics) QueryFailed(key query.Key, failures int) {
	scope := key.Scope()
	m.failures.WithLabelValues(scope).Inc()
	m.consecutive.WithLabelValues(scope).Set(float64(failures))
}

func (m *QueryMetrics) QuerySucceeded(key query.Key) {
	scope := key.Scope()
	m.successes.WithLabelValues(scope).Inc()
	m.consecutive.WithLabelValues(scope).Set(0)
}

func (m *QueryMetrics) QuerySuppressed(key query.Key) {
	m.suppressed.WithLabelValues(key.Scope()).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *QueryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
