package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/redwire-go/pkg/redis"
)

const namespace = "redwire"

// Registry holds the command-level metrics and the underlying
// prometheus registry they are registered with.
type Registry struct {
	reg *prometheus.Registry

	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewRegistry creates a metrics registry with all command metrics
// registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed, by command name and outcome.",
		}, []string{"command", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command latency including pool acquisition.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"command"}),
	}
	reg.MustRegister(r.commandsTotal, r.commandDuration)
	return r
}

// ObserveCommand implements redis.Observer.
func (r *Registry) ObserveCommand(cmd string, err error, elapsed time.Duration) {
	r.commandsTotal.WithLabelValues(cmd, statusLabel(err)).Inc()
	r.commandDuration.WithLabelValues(cmd).Observe(elapsed.Seconds())
}

// Register adds a collector to the registry, typically a
// PoolCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.reg.Register(c)
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and custom
// exposition.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// statusLabel folds an error into a low-cardinality label. Server
// error replies are distinguished from transport failures because
// they indicate healthy plumbing.
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch redis.ErrorKind(err) {
	case redis.KindServer:
		return "server_error"
	case redis.KindTimeout:
		return "timeout"
	case redis.KindPoolExhausted:
		return "pool_exhausted"
	default:
		return "error"
	}
}
