package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/redwire-go/pkg/redis"
)

// Output formats accepted by the CLI.
const (
	OutputRaw  = "raw"
	OutputJSON = "json"
)

// Config is the resolved redwire-cli configuration.
type Config struct {
	// Endpoint is the Redis endpoint URI, e.g. "redis://localhost:6379".
	Endpoint string `koanf:"endpoint"`

	// Addresses enables client-side sharded mode across multiple nodes.
	// When set, Endpoint is ignored.
	Addresses []string `koanf:"addresses"`

	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Protocol int    `koanf:"protocol"`

	// Output selects the reply format: raw or json.
	Output string `koanf:"output"`

	// History is the REPL history file path.
	History string `koanf:"history"`

	Pool    PoolConfig    `koanf:"pool"`
	Timeout TimeoutConfig `koanf:"timeout"`
	TLS     TLSConfig     `koanf:"tls"`
	Log     LogConfig     `koanf:"log"`
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	Size int `koanf:"size"`
	Idle int `koanf:"idle"`
}

// TimeoutConfig holds per-operation timeouts.
type TimeoutConfig struct {
	Dial  time.Duration `koanf:"dial"`
	Read  time.Duration `koanf:"read"`
	Write time.Duration `koanf:"write"`
	Wait  time.Duration `koanf:"wait"`
}

// TLSConfig configures rediss:// endpoints. CA points at a PEM bundle;
// Cert and Key enable mutual TLS; Name overrides the verified server name.
type TLSConfig struct {
	CA   string `koanf:"ca"`
	Cert string `koanf:"cert"`
	Key  string `koanf:"key"`
	Name string `koanf:"name"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoint: redis.DefaultEndpoint,
		Protocol: 2,
		Output:   OutputRaw,
		History:  DefaultHistoryPath(),
		Pool: PoolConfig{
			Size: redis.DefaultPoolSize,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".redwire", "cli.yaml")
}

// DefaultHistoryPath returns the default REPL history file path.
func DefaultHistoryPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".redwire", "history")
}

// Verify rejects configurations the client or CLI cannot act on.
func (c *Config) Verify() error {
	if c.Output != OutputRaw && c.Output != OutputJSON {
		return fmt.Errorf("config: unknown output format %q", c.Output)
	}
	if c.Protocol != 2 && c.Protocol != 3 {
		return fmt.Errorf("config: unsupported protocol version %d", c.Protocol)
	}
	if c.DB < 0 {
		return fmt.Errorf("config: negative database index %d", c.DB)
	}
	for _, addr := range c.endpoints() {
		if _, err := redis.ParseEndpoint(addr); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if (c.TLS.Cert == "") != (c.TLS.Key == "") {
		return fmt.Errorf("config: tls cert and key must be set together")
	}
	return nil
}

func (c *Config) endpoints() []string {
	if len(c.Addresses) > 0 {
		return c.Addresses
	}
	return []string{c.Endpoint}
}

// Sharded reports whether the configuration selects sharded mode. Any
// explicit address list counts, including a single entry; Endpoint is
// ignored once Addresses is set.
func (c *Config) Sharded() bool { return len(c.Addresses) > 0 }
