package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Observation metrics
	ChecksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_checks_total",
			Help: "Total number of per-domain checks performed",
		},
	)

	ResolveErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_resolve_errors_total",
			Help: "Total number of checks that failed at the resolver",
		},
	)

	ChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftwatch_changes_total",
			Help: "Total number of detected DNS changes by type",
		},
		[]string{"type"},
	)

	ZoneUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_zone_updates_total",
			Help: "Total number of serial-only zone updates",
		},
	)

	// Notification metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftwatch_notifications_total",
			Help: "Total number of notification decisions by result",
		},
		[]string{"result"},
	)

	// Scheduler metrics
	DomainsMonitored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftwatch_domains_monitored",
			Help: "Number of domains in the current monitoring set",
		},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftwatch_tick_duration_seconds",
			Help:    "Time taken to complete one full scan pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftwatch_check_duration_seconds",
			Help:    "Per-domain check duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		ChecksTotal,
		ResolveErrorsTotal,
		ChangesTotal,
		ZoneUpdatesTotal,
		NotificationsTotal,
		DomainsMonitored,
		TickDuration,
		CheckDuration,
	)
}
