package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds extraction pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests         *prometheus.CounterVec
	FieldAdjustments *prometheus.CounterVec
	Repairs          prometheus.Counter
	SchemaFields     prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemagate_extraction_requests_total",
			Help: "Extraction and chat requests by operation and outcome",
		}, []string{"op", "outcome"}),
		FieldAdjustments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemagate_extraction_field_adjustments_total",
			Help: "Result fields whose model value was converted or nulled",
		}, []string{"adjustment"}),
		Repairs: f.NewCounter(prometheus.CounterOpts{
			Name: "schemagate_extraction_repairs_total",
			Help: "Model outputs that only parsed after the repair pass",
		}),
		SchemaFields: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "schemagate_extraction_schema_fields",
			Help:    "Number of fields per extraction schema",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
	}
}

func (m *Metrics) recordRequest(op, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) recordResult(fields int, adjustments map[string]string, repaired bool) {
	if m == nil {
		return
	}
	m.SchemaFields.Observe(float64(fields))
	for _, adj := range adjustments {
		m.FieldAdjustments.WithLabelValues(adj).Inc()
	}
	if repaired {
		m.Repairs.Inc()
	}
}
