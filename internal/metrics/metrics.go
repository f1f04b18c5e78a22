// Package metrics defines the Prometheus collectors shared across the
// service. Collectors are registered on the default registry via promauto and
// exposed by the /metrics endpoint in cmd/server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration observes HTTP handler latency by route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "splitsettle",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// CreditEventsTotal counts applied (non-duplicate) scoring events.
	CreditEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsettle",
		Name:      "credit_events_total",
		Help:      "Credit score events applied, by reason.",
	}, []string{"reason"})

	// DelayPenaltiesTotal counts delay penalty tiers applied by scans.
	DelayPenaltiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsettle",
		Name:      "delay_penalties_total",
		Help:      "Delay penalties applied, by tier.",
	}, []string{"tier"})

	// SettlementsRecordedTotal counts settlements created, by status.
	SettlementsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsettle",
		Name:      "settlements_recorded_total",
		Help:      "Settlements recorded.",
	}, []string{"status"})

	// ReconciliationsTotal counts pending-member reconciliations by outcome.
	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsettle",
		Name:      "reconciliations_total",
		Help:      "Pending member reconciliations, by outcome.",
	}, []string{"outcome"})

	// AuditDropsTotal counts non-blocking audit writes that failed and were
	// swallowed. Balance-affecting writes never land here.
	AuditDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitsettle",
		Name:      "audit_drops_total",
		Help:      "Non-blocking audit log writes dropped after failure.",
	})
)
