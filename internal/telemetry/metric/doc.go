// Package metric provides Prometheus metrics for RedWire.
//
// Two surfaces are exported:
//
//   - Registry: per-command counters and latency histograms, fed
//     through the client's Observer hook
//   - PoolCollector: a prometheus.Collector that scrapes connection
//     pool statistics on demand
//
// Metrics are exposed via Handler in the standard Prometheus text
// format.
package metric
