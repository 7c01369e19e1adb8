package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeOK = "ok"

// Metrics holds inference backend collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	BreakerOpen  prometheus.Gauge
	ProbesFailed prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemagate_inference_requests_total",
			Help: "Inference backend calls by operation and outcome",
		}, []string{"op", "outcome"}),
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schemagate_inference_duration_seconds",
			Help:    "Inference backend call latency by operation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"op"}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "schemagate_inference_circuit_open",
			Help: "1 while the inference circuit breaker is open",
		}),
		ProbesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "schemagate_inference_probes_failed_total",
			Help: "Health probes that found the backend still down while the circuit was open",
		}),
	}
}

func (m *Metrics) observe(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
	m.Latency.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) probeFailed() {
	if m == nil {
		return
	}
	m.ProbesFailed.Inc()
}
