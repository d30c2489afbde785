// Package metrics provides the Prometheus registry shared by the catalog client
// and the reference origin. Metrics are defined in their respective packages
// (client, cache, endpoint, upstream, server) to keep them next to the code
// that updates them.
//
// This package provides the exposition handler and a reference of all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer metrics are registered with via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer exposed by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics exposition handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Endpoint Metrics (pkg/endpoint):
//   - satcat_endpoint_failed_over_selectors (Gauge): Selectors in the process that switched to the secondary origin
//   - satcat_endpoint_failures_total{origin} (Counter): Failover-class failures by origin
//
// Cache Metrics (pkg/cache):
//   - satcat_cache_hits_total (Counter): Cache hits
//   - satcat_cache_misses_total (Counter): Cache misses, expired entries included
//   - satcat_cache_evictions_total{reason} (Counter): Evictions (expired, purge)
//   - satcat_cache_entries (Gauge): Entries currently held
//
// Request Metrics (pkg/client):
//   - satcat_requests_total{origin, status} (Counter): Origin calls by HTTP status or error class
//   - satcat_request_duration_seconds{origin} (Histogram): Origin call duration
//   - satcat_errors_total{class} (Counter): Failures by class (timeout, remote, transport, not_found)
//   - satcat_coalesced_total (Counter): Results delivered to more than one caller
//   - satcat_fallback_redispatch_total (Counter): Requests re-dispatched to the secondary
//
// Upstream Metrics (internal/upstream):
//   - satcat_upstream_fetches_total{status} (Counter): GP feed fetches by outcome
//   - satcat_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - satcat_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - satcat_upstream_retry_exhausted_total{error_class} (Counter): Fetches that exhausted retries
//
// Origin Server Metrics (internal/server):
//   - satcat_origin_http_requests_total{method, route, status} (Counter): Served requests
//   - satcat_origin_http_request_duration_seconds{route} (Histogram): Handler latency
//   - satcat_origin_catalog_records{group} (Gauge): Records stored per group after refresh
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(satcat_cache_hits_total[5m])) /
//   (sum(rate(satcat_cache_hits_total[5m])) + sum(rate(satcat_cache_misses_total[5m])))
//
//   # Clients running on the secondary
//   satcat_endpoint_failed_over_selectors > 0
//
//   # Coalescing effectiveness
//   rate(satcat_coalesced_total[5m]) / rate(satcat_requests_total[5m])
//
//   # P95 Origin Latency
//   histogram_quantile(0.95, rate(satcat_request_duration_seconds_bucket[5m]))
