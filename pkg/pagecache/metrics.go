package pagecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks page cache hits.
	Hits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_page_cache_hits_total",
			Help: "Total number of page cache hits",
		},
	)

	// Misses tracks page cache misses.
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_page_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// Errors tracks cache operation errors.
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_page_cache_errors_total",
			Help: "Total number of page cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "scan"
	)
)
