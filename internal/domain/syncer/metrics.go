package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests    *prometheus.CounterVec
	passes      *prometheus.CounterVec
	pending     prometheus.Gauge
	breakerOpen prometheus.Gauge
	duration    *prometheus.HistogramVec
}

// NewMetrics crea los collectors y, si reg != nil, los registra.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "care_ledger",
			Subsystem: "sync",
			Name:      "requests_total",
			Help:      "Remote requests issued by the sync engine.",
		}, []string{"op", "result"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "care_ledger",
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Sync passes by outcome.",
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "care_ledger",
			Subsystem: "sync",
			Name:      "pending",
			Help:      "Unsynced events plus pending tombstones at the start of the last pass.",
		}),
		breakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "care_ledger",
			Subsystem: "sync",
			Name:      "breaker_open",
			Help:      "1 while the sync circuit breaker is open.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "care_ledger",
			Subsystem: "sync",
			Name:      "request_duration_seconds",
			Help:      "Remote request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.passes, m.pending, m.breakerOpen, m.duration)
	}
	return m
}
