// Package metrics documents the Prometheus metrics jamfctl exports and writes
// them out for the node_exporter textfile collector.
// All metrics are defined in their respective packages (client, ratelimit,
// session) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer is the default source for WriteTextfile.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every metric of g (Gatherer when nil) to path in the
// text exposition format. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return fmt.Errorf("metrics textfile path is empty")
	}
	if g == nil {
		g = Gatherer
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - jamf_requests_total{method, status} (Counter): Sub-requests by HTTP method and status
//   - jamf_request_duration_seconds{method} (Histogram): Sub-request duration by method
//   - jamf_errors_total{class} (Counter): Failures by class (client, server, auth, network)
//   - jamf_batches_total{outcome} (Counter): Batches by outcome (completed, partial, auth_failed)
//   - jamf_batch_size (Histogram): Sub-requests per batch
//   - jamf_inflight_requests (Gauge): Sub-requests currently in flight
//
// Authentication Metrics (pkg/session):
//   - jamf_auth_requests_total{outcome} (Counter): Token requests by outcome
//
// Limiter Metrics (pkg/ratelimit):
//   - jamf_limiter_waits_total{backend} (Counter): Acquisitions that waited, by backend (local, redis)
//   - jamf_limiter_wait_seconds{backend} (Histogram): Time spent waiting for a slot
//
// Example Prometheus Queries:
//
//   # Failed sub-request ratio
//   sum(rate(jamf_errors_total[1h])) / sum(rate(jamf_requests_total[1h]))
//
//   # Tokens expiring mid-batch
//   rate(jamf_errors_total{class="auth"}[1h])
//
//   # P95 sub-request latency
//   histogram_quantile(0.95, rate(jamf_request_duration_seconds_bucket[1h]))
