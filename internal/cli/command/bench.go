package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/redwire-go/internal/cli/config"
	"github.com/yndnr/redwire-go/internal/infra/shutdown"
	"github.com/yndnr/redwire-go/internal/telemetry/metric"
	"github.com/yndnr/redwire-go/pkg/redis"
)

// BenchCommand runs a load generator against the configured endpoint.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Run a benchmark against the server",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "requests",
				Usage: "Total number of requests",
				Value: 10000,
			},
			&cli.IntFlag{
				Name:  "clients",
				Usage: "Number of concurrent workers",
				Value: 16,
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "Request rate limit in ops/sec, 0 for unlimited",
			},
			&cli.StringFlag{
				Name:  "op",
				Usage: "Operation to benchmark: set, get or ping",
				Value: "set",
			},
			&cli.Int64Flag{
				Name:  "keyspace",
				Usage: "Number of distinct keys",
				Value: 1000,
			},
			&cli.IntFlag{
				Name:  "value-size",
				Usage: "Value size in bytes for set",
				Value: 64,
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address while running",
			},
		},
		Action: benchAction,
	}
}

func benchAction(c *cli.Context) error {
	op := c.String("op")
	if op != "set" && op != "get" && op != "ping" {
		return fmt.Errorf("unknown bench op %q", op)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	clients := c.Int("clients")
	if clients < 1 {
		clients = 1
	}
	if cfg.Pool.Size < clients {
		cfg.Pool.Size = clients
	}

	registry := metric.NewRegistry()
	t, err := dial(cfg, redis.WithObserver(registry))
	if err != nil {
		return err
	}
	defer t.close()
	defer watchConfig(c)()

	if addr := c.String("metrics-addr"); addr != "" {
		srv, err := serveMetrics(addr, registry, cfg, t)
		if err != nil {
			return err
		}
		defer srv.Close()
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	stop := shutdown.NewHandler(2 * time.Second)
	stop.OnShutdown(func(context.Context) error { cancel(); return nil })
	go stop.Wait()
	defer stop.Trigger()

	total := c.Int64("requests")
	keyspace := c.Int64("keyspace")
	if keyspace < 1 {
		keyspace = 1
	}
	value := bytes.Repeat([]byte("x"), c.Int("value-size"))

	var limiter *rate.Limiter
	if r := c.Float64("rate"); r > 0 {
		limiter = rate.NewLimiter(rate.Limit(r), clients)
	}

	var next, failures atomic.Int64
	results := make([][]time.Duration, clients)
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < clients; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			lat := make([]time.Duration, 0, total/int64(clients)+1)
			defer func() { results[w] = lat }()

			for {
				n := next.Add(1)
				if n > total {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				args := benchArgs(op, n%keyspace, value)
				opStart := time.Now()
				if _, err := t.do(ctx, args); err != nil {
					if ctx.Err() != nil {
						return
					}
					failures.Add(1)
				}
				lat = append(lat, time.Since(opStart))
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	var merged []time.Duration
	for _, lat := range results {
		merged = append(merged, lat...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })

	out := c.App.Writer
	fmt.Fprintf(out, "op:         %s\n", op)
	fmt.Fprintf(out, "requests:   %d (%d failed)\n", len(merged), failures.Load())
	fmt.Fprintf(out, "elapsed:    %v\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		fmt.Fprintf(out, "throughput: %.0f ops/sec\n", float64(len(merged))/elapsed.Seconds())
	}
	if len(merged) > 0 {
		fmt.Fprintf(out, "latency:    p50=%v p95=%v p99=%v max=%v\n",
			percentile(merged, 0.50), percentile(merged, 0.95),
			percentile(merged, 0.99), merged[len(merged)-1])
	}
	return nil
}

// serveMetrics exposes the command metrics and a pool collector while
// the benchmark runs.
func serveMetrics(addr string, registry *metric.Registry, cfg *config.Config, t *target) (*http.Server, error) {
	var source metric.StatsSource
	if t.sharded != nil {
		source = t.sharded.Stats
	} else {
		source = metric.SingleSource(cfg.Endpoint, t.client)
	}
	if err := registry.Register(metric.NewPoolCollector(source)); err != nil {
		return nil, err
	}

	srv := &http.Server{Addr: addr, Handler: registry.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			PrintError("metrics server: %v", err)
		}
	}()
	return srv, nil
}

// benchArgs builds the command vector for one benchmark request.
func benchArgs(op string, n int64, value []byte) []string {
	key := "bench:" + strconv.FormatInt(n, 10)
	switch op {
	case "get":
		return []string{"GET", key}
	case "ping":
		return []string{"PING"}
	default:
		return []string{"SET", key, string(value)}
	}
}

// percentile returns the value at fraction p of a sorted sample.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
