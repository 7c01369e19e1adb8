package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Latency  *prometheus.HistogramVec
	Requests *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schemagate_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"route"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "schemagate_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) ObserveRequest(route, status string, durationSeconds float64) {
	m.Latency.WithLabelValues(route).Observe(durationSeconds)
	m.Requests.WithLabelValues(route, status).Inc()
}
