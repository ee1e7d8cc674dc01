// Package metrics exposes Prometheus collectors for the metadata pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "applinks",
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Total number of upstream metadata fetches.",
		},
		[]string{"store", "outcome"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "applinks",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Duration of upstream metadata fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"store"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "applinks",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result.",
		},
		[]string{"result"},
	)

	registrySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "applinks",
			Subsystem: "registry",
			Name:      "entries",
			Help:      "Number of tracked registry entries.",
		},
	)
)

func init() {
	Registry.MustRegister(fetchesTotal, fetchDuration, cacheLookups, registrySize)
}

// ObserveFetch records one upstream fetch attempt.
func ObserveFetch(store string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	fetchesTotal.WithLabelValues(store, outcome).Inc()
	fetchDuration.WithLabelValues(store).Observe(duration.Seconds())
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// SetRegistrySize updates the tracked-entry gauge.
func SetRegistrySize(n int) {
	registrySize.Set(float64(n))
}

// Handler serves the collectors over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
