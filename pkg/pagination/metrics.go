package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageLoads tracks page loads by edge and result (success, error, discarded).
	PageLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rickmorty_page_loads_total",
			Help: "Total number of page loads by load type and result",
		},
		[]string{"type", "result"},
	)

	// PageLoadDuration tracks page load latency by edge.
	PageLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rickmorty_page_load_duration_seconds",
			Help:    "Page load duration in seconds by load type",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"type"},
	)

	// PrefetchesTotal counts loads triggered by read proximity.
	PrefetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rickmorty_prefetches_total",
			Help: "Total number of prefetch-triggered loads by load type",
		},
		[]string{"type"},
	)
)
