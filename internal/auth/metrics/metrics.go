package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	ResultHit         = "hit"
	ResultNegativeHit = "negative_hit"
	ResultMiss        = "miss"
	ResultError       = "error"
)

// Verification outcomes.
const (
	OutcomeAccepted     = "accepted"
	OutcomeMalformed    = "malformed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeUnavailable  = "unavailable"
	OutcomeCanceled     = "canceled"
)

// Metrics holds Prometheus collectors for credential verification.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	CacheEvictions   prometheus.Counter
	CacheEntries     prometheus.Gauge
	Verifications    *prometheus.CounterVec
	StoreLookups     *prometheus.CounterVec
	StoreLatency     prometheus.Histogram
	SharedStoreCalls prometheus.Counter
}

// New registers auth collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemagate_auth_cache_lookups_total",
			Help: "Credential cache lookups by backend and result",
		}, []string{"backend", "result"}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "schemagate_auth_cache_evictions_total",
			Help: "Expired credential cache entries removed by the janitor",
		}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "schemagate_auth_cache_entries",
			Help: "Entries currently held by the in-memory credential cache",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemagate_auth_verifications_total",
			Help: "Credential verifications by outcome",
		}, []string{"outcome"}),
		StoreLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemagate_auth_store_lookups_total",
			Help: "Credential store round trips by result",
		}, []string{"result"}),
		StoreLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "schemagate_auth_store_lookup_duration_seconds",
			Help:    "Credential store lookup latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		}),
		SharedStoreCalls: f.NewCounter(prometheus.CounterOpts{
			Name: "schemagate_auth_store_shared_lookups_total",
			Help: "Verifications whose store lookup was shared with a concurrent caller",
		}),
	}
}

func (m *Metrics) RecordCacheLookup(backend, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) RecordEvictions(n int) {
	if m == nil || n == 0 {
		return
	}
	m.CacheEvictions.Add(float64(n))
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStoreLookup(result string, seconds float64) {
	if m == nil {
		return
	}
	m.StoreLookups.WithLabelValues(result).Inc()
	m.StoreLatency.Observe(seconds)
}

func (m *Metrics) RecordSharedStoreCall() {
	if m == nil {
		return
	}
	m.SharedStoreCalls.Inc()
}
