// Package metrics exposes Prometheus counters for the scan and alert cycles.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardwatch_scans_total",
			Help: "Completed scan cycles",
		},
	)

	ListingsFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardwatch_listings_found_total",
			Help: "Raw candidate listings returned by sources",
		},
		[]string{"source"},
	)

	ListingsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardwatch_listings_rejected_total",
			Help: "Raw records dropped by the normalizer (missing identity)",
		},
	)

	DropsDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardwatch_drops_discovered_total",
			Help: "New drops created by reconciliation",
		},
		[]string{"retailer"},
	)

	AlertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardwatch_alerts_fired_total",
			Help: "Alert tiers recorded and dispatched",
		},
		[]string{"tier"},
	)

	DispatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardwatch_dispatch_failures_total",
			Help: "Notification deliveries that failed after bookkeeping",
		},
	)
)

func Init() {
	prometheus.MustRegister(ScansTotal, ListingsFound, ListingsRejected,
		DropsDiscovered, AlertsFired, DispatchFailures)
}
