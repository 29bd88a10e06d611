package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/redwire-go/pkg/redis"
)

// StatsSource yields a point-in-time snapshot of pool statistics per
// endpoint address. A single Client maps one address to its stats; a
// Sharded client returns one entry per node.
type StatsSource func() map[string]redis.Stats

// SingleSource adapts one client to a StatsSource.
func SingleSource(addr string, c *redis.Client) StatsSource {
	return func() map[string]redis.Stats {
		return map[string]redis.Stats{addr: c.Stats()}
	}
}

// PoolCollector scrapes pool statistics on demand. It holds no state
// between scrapes.
type PoolCollector struct {
	source StatsSource

	open      *prometheus.Desc
	idle      *prometheus.Desc
	waiting   *prometheus.Desc
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	timeouts  *prometheus.Desc
	evictions *prometheus.Desc
}

// NewPoolCollector creates a collector over source.
func NewPoolCollector(source StatsSource) *PoolCollector {
	labels := []string{"addr"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(namespace+"_pool_"+name, help, labels, nil)
	}
	return &PoolCollector{
		source:    source,
		open:      desc("open_connections", "Live connections, idle plus on loan."),
		idle:      desc("idle_connections", "Connections parked in the free list."),
		waiting:   desc("waiting_acquirers", "Callers blocked waiting for a connection."),
		hits:      desc("hits_total", "Acquisitions served from the free list."),
		misses:    desc("misses_total", "Acquisitions that dialed a new connection."),
		timeouts:  desc("wait_timeouts_total", "Acquisitions that gave up waiting."),
		evictions: desc("evictions_total", "Connections discarded as broken or stale."),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.idle
	ch <- c.waiting
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.evictions
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for addr, st := range c.source() {
		gauge := func(d *prometheus.Desc, v int) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), addr)
		}
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), addr)
		}
		gauge(c.open, st.Open)
		gauge(c.idle, st.Idle)
		gauge(c.waiting, st.Waiting)
		counter(c.hits, st.Hits)
		counter(c.misses, st.Misses)
		counter(c.timeouts, st.Timeouts)
		counter(c.evictions, st.Evictions)
	}
}
