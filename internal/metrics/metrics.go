package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatrelay"

// Metrics holds the gateway's Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	Attempts         *prometheus.CounterVec
	CandidateSwitch  *prometheus.CounterVec
	Dispatches       *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
}

// New registers every instrument on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,

		// outcome is "success", "internal" or a provider error kind
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Provider invocations by outcome.",
		}, []string{"provider", "outcome"}),

		CandidateSwitch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_switches_total",
			Help:      "Rate-limited candidate models that handed over to the next model of the same provider.",
		}, []string{"provider"}),

		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Chat dispatches by result.",
		}, []string{"result"}),

		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching a chat request across all providers.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
	reg.MustRegister(
		m.Attempts,
		m.CandidateSwitch,
		m.Dispatches,
		m.DispatchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveAttempt(provider, outcome string) {
	m.Attempts.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveDispatch(result string, elapsed time.Duration) {
	m.Dispatches.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.DispatchDuration.Observe(elapsed.Seconds())
	}
}

// ObserveCandidateSwitch matches the adapters' candidate switch hook.
func (m *Metrics) ObserveCandidateSwitch(provider, _, _ string) {
	m.CandidateSwitch.WithLabelValues(provider).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
