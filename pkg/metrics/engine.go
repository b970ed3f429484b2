// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query engine Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sarychdb",
			Name:      "search_duration_seconds",
			Help:      "Collection scan duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"strategy"},
	)

	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sarychdb",
			Name:      "operations_total",
			Help:      "Total number of query engine operations",
		},
		[]string{"op", "status"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sarychdb",
			Name:      "cache_lookups_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CacheInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sarychdb",
			Name:      "cache_invalidated_entries_total",
			Help:      "Result cache entries dropped by writes",
		},
	)

	DocumentsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sarychdb",
			Name:      "documents_written_total",
			Help:      "Documents inserted, updated or deleted",
		},
		[]string{"op"},
	)
)

var registerEngineOnce sync.Once

// RegisterEngineMetrics registers the query engine metrics with the default registry.
// Safe to call more than once.
func RegisterEngineMetrics() {
	registerEngineOnce.Do(func() {
		prometheus.MustRegister(SearchDuration)
		prometheus.MustRegister(OperationsTotal)
		prometheus.MustRegister(CacheLookupsTotal)
		prometheus.MustRegister(CacheInvalidationsTotal)
		prometheus.MustRegister(DocumentsWrittenTotal)
	})
}

// Status returns the status label for an operation outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
