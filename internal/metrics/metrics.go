// Package metrics holds the Prometheus collectors for the update loop. They
// are registered on the controller-runtime registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// ReconcileTotal counts finished ticks by outcome.
	ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ddns_reconcile_total",
		Help: "Number of update ticks by outcome.",
	}, []string{"outcome"})

	// ReconcileDuration observes how long each tick took.
	ReconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ddns_reconcile_duration_seconds",
		Help:    "Duration of update ticks.",
		Buckets: prometheus.DefBuckets,
	})

	// LastSuccess is the unix time of the last tick that did not fail.
	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ddns_last_success_timestamp_seconds",
		Help: "Unix time of the last successful update tick.",
	})
)

func init() {
	ctrlmetrics.Registry.MustRegister(ReconcileTotal, ReconcileDuration, LastSuccess)
}

// ObserveTick records one finished tick.
func ObserveTick(outcome string, failed bool, duration time.Duration) {
	ReconcileTotal.WithLabelValues(outcome).Inc()
	ReconcileDuration.Observe(duration.Seconds())
	if !failed {
		LastSuccess.SetToCurrentTime()
	}
}
