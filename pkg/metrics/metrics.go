// Package metrics documents the rowsite Prometheus metrics and exports them.
// All metrics are defined in their respective packages (client, cache,
// pagination, site, storage) and registered via promauto on the default
// registry.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by rowsite.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node_exporter textfile collector. Parent
// directories are created as needed.
func WriteTextfile(path string) error {
	return writeTextfile(Gatherer, path)
}

func writeTextfile(g prometheus.Gatherer, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - rowsite_requests_total{status} (Counter): Dataset-server requests by HTTP status, cache_hit or network_error
//   - rowsite_request_duration_seconds (Histogram): Request duration
//   - rowsite_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client, only with --retries > 0):
//   - rowsite_retries_total{error_class} (Counter): Retry attempts by error class
//   - rowsite_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - rowsite_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Cache Metrics (pkg/cache, only with REDIS_URL):
//   - rowsite_cache_lookups_total{result} (Counter): Lookups by result (hit, miss, stale)
//   - rowsite_cache_stored_bytes_total (Counter): Encoded bytes written to Redis
//   - rowsite_cache_errors_total{op} (Counter): Redis errors by operation (get, decode, set, del)
//
// Fetch Metrics (pkg/pagination):
//   - rowsite_pages_fetched_total (Counter): Pages fetched
//   - rowsite_rows_fetched_total (Counter): Rows fetched
//
// Build Metrics (pkg/site):
//   - rowsite_files_written_total (Counter): Output files written
//   - rowsite_build_duration_seconds{mode} (Histogram): Build duration by mode (static, site, dynamic)
//   - rowsite_build_failures_total{mode} (Counter): Failed builds by mode
//
// Publish Metrics (pkg/storage):
//   - rowsite_objects_uploaded_total (Counter): Objects uploaded
//   - rowsite_bytes_uploaded_total (Counter): Bytes uploaded
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(rowsite_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(rowsite_cache_lookups_total[5m]))
//
//   # Request Error Rate
//   rate(rowsite_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(rowsite_request_duration_seconds_bucket[5m]))
//
//   # Last build failed
//   increase(rowsite_build_failures_total[1d]) > 0
