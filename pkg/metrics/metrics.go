// Package metrics exposes the Prometheus registry of the client.
// Metrics are defined in their respective packages (client, cache, pagination)
// and registered via promauto; this package documents them and serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - rickmorty_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//     (status is also "cached", "cancelled" or "transport_error")
//   - rickmorty_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - rickmorty_errors_total{class} (Counter): Errors by class (connectivity, network, client, server, mapping)
//
// Cache Metrics (pkg/cache):
//   - rickmorty_cache_hits_total{state} (Counter): Cache hits by state (fresh, stale)
//   - rickmorty_cache_misses_total (Counter): Cache misses
//   - rickmorty_cache_stored_bytes (Counter): Bytes written to the cache
//   - rickmorty_conditional_requests_total (Counter): Conditional requests sent
//   - rickmorty_not_modified_total (Counter): 304 Not Modified responses
//   - rickmorty_cache_errors_total{operation} (Counter): Cache operation errors
//
// Paging Metrics (pkg/pagination):
//   - rickmorty_page_loads_total{type, result} (Counter): Page loads by edge and result (success, error, discarded)
//   - rickmorty_page_load_duration_seconds{type} (Histogram): Page load duration by edge
//   - rickmorty_prefetches_total{type} (Counter): Loads triggered by read proximity
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(rickmorty_cache_hits_total[5m])) /
//   (sum(rate(rickmorty_cache_hits_total[5m])) + sum(rate(rickmorty_cache_misses_total[5m])))
//
//   # Connectivity Failures
//   rate(rickmorty_errors_total{class="connectivity"}[5m])
//
//   # Discarded Stale Loads
//   rate(rickmorty_page_loads_total{result="discarded"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(rickmorty_request_duration_seconds_bucket[5m]))
