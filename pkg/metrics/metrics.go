// Package metrics provides the centralized Prometheus metrics reference for
// the market browser. All metrics are defined in their respective packages
// (session, fetch, pagecache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the market browser.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Sync Engine Metrics (pkg/session):
//   - market_sessions_total (Counter): Sync sessions started, one per filter change
//   - market_pages_fetched_total{result} (Counter): Completed page fetches by result (success, failure)
//   - market_fetches_skipped_total (Counter): Requests skipped by single-flight guarding
//   - market_stale_responses_total (Counter): Responses discarded on epoch mismatch
//   - market_merge_added_total (Counter): Orders added to the collection by merges
//   - market_merge_duplicates_total (Counter): Orders dropped as duplicates
//   - market_boundary_violations_total (Counter): Cross-page boundary ordering violations
//   - market_rows_truncated_total (Counter): Orders dropped by the max-rows cap
//   - market_rows (Gauge): Current collection size
//
// Fetch Metrics (pkg/fetch):
//   - market_requests_total{status} (Counter): Orders API requests by HTTP status
//   - market_request_duration_seconds (Histogram): Request duration
//   - market_fetch_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - market_page_order_violations_total (Counter): Pages not ordered per the boundary contract
//
// Retry Metrics (pkg/fetch):
//   - market_fetch_retries_total{error_class} (Counter): Retry attempts by error class
//   - market_fetch_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - market_fetch_retry_exhausted_total{error_class} (Counter): Fetches that exhausted max retries
//
// Page Cache Metrics (pkg/pagecache):
//   - market_page_cache_hits_total (Counter): Page cache hits
//   - market_page_cache_misses_total (Counter): Page cache misses
//   - market_page_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Duplicate rate. Should be zero; a sustained rate means the orders API
//   # is violating the pagination boundary contract.
//   rate(market_merge_duplicates_total[5m])
//
//   # Cache Hit Rate
//   rate(market_page_cache_hits_total[5m]) /
//   (rate(market_page_cache_hits_total[5m]) + rate(market_page_cache_misses_total[5m]))
//
//   # Fetch Error Rate
//   rate(market_fetch_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(market_request_duration_seconds_bucket[5m]))
//
//   # Stale discard rate. Spikes track rapid filter changes.
//   rate(market_stale_responses_total[5m])
