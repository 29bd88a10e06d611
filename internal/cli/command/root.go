package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/redwire-go/internal/cli/config"
	"github.com/yndnr/redwire-go/internal/cli/output"
	"github.com/yndnr/redwire-go/internal/infra/buildinfo"
	"github.com/yndnr/redwire-go/internal/infra/confloader"
	"github.com/yndnr/redwire-go/internal/telemetry/logger"
	"github.com/yndnr/redwire-go/pkg/redis"
	"github.com/yndnr/redwire-go/pkg/resp"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "redwire-cli",
		Usage:   "Redis command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CmdCommand(),
			GetCommand(),
			SetCommand(),
			DelCommand(),
			PingCommand(),
			InfoCommand(),
			BenchCommand(),
			ReplCommand(),
		},
	}
}

// globalFlags returns the flags shared by all commands.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path (default ~/.redwire/cli.yaml)",
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "Redis endpoint URI, e.g. redis://localhost:6379",
			EnvVars: []string{"REDWIRE_ENDPOINT"},
		},
		&cli.StringSliceFlag{
			Name:    "addresses",
			Usage:   "Endpoint list for client-side sharded mode",
			EnvVars: []string{"REDWIRE_ADDRESSES"},
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "AUTH username",
			EnvVars: []string{"REDWIRE_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"a"},
			Usage:   "AUTH password",
			EnvVars: []string{"REDWIRE_PASSWORD"},
		},
		&cli.IntFlag{
			Name:    "db",
			Aliases: []string{"n"},
			Usage:   "Database index",
			EnvVars: []string{"REDWIRE_DB"},
		},
		&cli.IntFlag{
			Name:  "protocol",
			Usage: "RESP protocol version: 2 or 3",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: raw, json",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Per-command timeout",
			Value:   5 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// loadConfig resolves the configuration and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies explicitly set global flags over the file and
// environment layers.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("endpoint") {
		cfg.Endpoint = c.String("endpoint")
	}
	if c.IsSet("addresses") {
		cfg.Addresses = c.StringSlice("addresses")
	}
	if c.IsSet("username") {
		cfg.Username = c.String("username")
	}
	if c.IsSet("password") {
		cfg.Password = c.String("password")
	}
	if c.IsSet("db") {
		cfg.DB = c.Int("db")
	}
	if c.IsSet("protocol") {
		cfg.Protocol = c.Int("protocol")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
}

// target wraps a single client or the sharded client behind the one
// surface the commands need.
type target struct {
	client  *redis.Client
	sharded *redis.Sharded
}

// dial builds the client selected by the configuration.
func dial(cfg *config.Config, opts ...redis.Option) (*target, error) {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	settings, err := cfg.Settings(log)
	if err != nil {
		return nil, err
	}

	if cfg.Sharded() {
		s, err := redis.NewSharded(settings, opts...)
		if err != nil {
			return nil, err
		}
		return &target{sharded: s}, nil
	}
	cl, err := redis.New(settings, opts...)
	if err != nil {
		return nil, err
	}
	return &target{client: cl}, nil
}

// do sends one command vector. In sharded mode the first argument after
// the command name picks the node; commands without a key go to the
// first node.
func (t *target) do(ctx context.Context, args []string) (resp.Value, error) {
	anyArgs := make([]any, len(args))
	for i, a := range args {
		anyArgs[i] = a
	}
	if t.sharded != nil {
		key := ""
		if len(args) > 1 {
			key = args[1]
		}
		return t.sharded.Do(ctx, key, anyArgs...)
	}
	return t.client.Do(ctx, anyArgs...)
}

func (t *target) close() error {
	if t.sharded != nil {
		return t.sharded.Close()
	}
	return t.client.Close()
}

// connect is the shared preamble of the one-shot commands.
func connect(c *cli.Context) (*target, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	t, err := dial(cfg)
	if err != nil {
		return nil, nil, err
	}
	return t, cfg, nil
}

// opCtx returns the per-command context bound by the timeout flag.
func opCtx(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, c.Duration("timeout"))
}

// printReply renders a reply with the configured formatter.
func printReply(c *cli.Context, cfg *config.Config, v resp.Value) error {
	return output.NewFormatter(output.Format(cfg.Output)).Format(c.App.Writer, v)
}

// watchConfig follows the config file while a long-running command
// executes, applying log-level changes in place. The returned stop
// function tears the watcher down; a missing file disables watching.
func watchConfig(c *cli.Context) func() {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return func() {}
	}

	w, err := confloader.NewWatcher(logger.Default())
	if err != nil {
		return func() {}
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return func() {}
	}
	w.OnChange(func(changed string) {
		if filepath.Base(changed) != filepath.Base(path) {
			return
		}
		l := confloader.New()
		if err := l.LoadFile(path); err != nil {
			return
		}
		if level := l.String("log.level"); level != "" {
			logger.SetLevel(level)
		}
	})
	w.StartAsync()
	return func() { w.Stop() }
}

// describeTarget names the connection target with credentials redacted.
func describeTarget(cfg *config.Config) string {
	if cfg.Sharded() {
		redacted := make([]string, len(cfg.Addresses))
		for i, addr := range cfg.Addresses {
			redacted[i] = redis.RedactEndpoint(addr)
		}
		return fmt.Sprintf("%d sharded nodes %v", len(redacted), redacted)
	}
	return redis.RedactEndpoint(cfg.Endpoint)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
