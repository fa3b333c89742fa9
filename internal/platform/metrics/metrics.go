// Package metrics holds all Prometheus instruments for the engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ClaimsRegistered    prometheus.Counter
	Attestations        *prometheus.CounterVec
	Endorsements        prometheus.Counter
	Rejections          prometheus.Counter
	DisputesOpened      prometheus.Counter
	DisputesResolved    *prometheus.CounterVec
	NotifyFailures      prometheus.Counter
	NearbyQueryDuration prometheus.Histogram
	RequestDuration     *prometheus.HistogramVec
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics and registers them on reg. Tests pass a fresh
// registry so multiple instances can coexist in one process.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ClaimsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "shamba_claims_registered_total",
			Help: "Total number of land claims registered.",
		}),
		Attestations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shamba_attestations_total",
			Help: "Total attestations recorded, by action.",
		}, []string{"action"}),
		Endorsements: f.NewCounter(prometheus.CounterOpts{
			Name: "shamba_endorsements_total",
			Help: "Total leader endorsements applied.",
		}),
		Rejections: f.NewCounter(prometheus.CounterOpts{
			Name: "shamba_rejections_total",
			Help: "Total leader rejections applied.",
		}),
		DisputesOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "shamba_disputes_opened_total",
			Help: "Total disputes opened against claims.",
		}),
		DisputesResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shamba_disputes_resolved_total",
			Help: "Total disputes resolved, by decision.",
		}, []string{"decision"}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "shamba_notify_failures_total",
			Help: "Notification deliveries that failed and were dropped.",
		}),
		NearbyQueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shamba_nearby_query_duration_seconds",
			Help:    "Latency of nearby-claims geo queries.",
			Buckets: prometheus.DefBuckets,
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shamba_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveNearbyQuery records one nearby-claims query duration.
func (m *Metrics) ObserveNearbyQuery(d time.Duration) {
	m.NearbyQueryDuration.Observe(d.Seconds())
}
