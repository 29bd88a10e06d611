package config

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"

	"github.com/yndnr/redwire-go/internal/infra/confloader"
	"github.com/yndnr/redwire-go/internal/infra/tlsroots"
	"github.com/yndnr/redwire-go/pkg/redis"
)

// Load resolves the CLI configuration. An empty path means the default
// location; a missing default file is not an error, a missing explicit
// one is. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := Default()
	loader := confloader.New()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := loader.LoadFile(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := loader.LoadEnv(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Settings converts the configuration into client settings.
func (c *Config) Settings(log *slog.Logger) (redis.Settings, error) {
	tlsConf, err := c.tlsConfig(log)
	if err != nil {
		return redis.Settings{}, err
	}
	return redis.Settings{
		Address:      c.Endpoint,
		Addresses:    c.Addresses,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		Protocol:     c.Protocol,
		TLSConfig:    tlsConf,
		PoolSize:     c.Pool.Size,
		MinIdle:      c.Pool.Idle,
		DialTimeout:  c.Timeout.Dial,
		ReadTimeout:  c.Timeout.Read,
		WriteTimeout: c.Timeout.Write,
		WaitTimeout:  c.Timeout.Wait,
		Logger:       log,
	}, nil
}

// tlsConfig builds the TLS client configuration, or nil when no TLS
// option is set. rediss:// endpoints with a nil config fall back to the
// system roots inside the client. A configured client keypair is served
// through a file watcher so rotated certificates are picked up on the
// next handshake; the watcher lives for the rest of the process.
func (c *Config) tlsConfig(log *slog.Logger) (*tls.Config, error) {
	if c.TLS.CA == "" && c.TLS.Cert == "" && c.TLS.Name == "" {
		return nil, nil
	}
	if log == nil {
		log = slog.Default()
	}

	pool := tlsroots.NewPool()
	if c.TLS.CA != "" {
		if err := pool.AddCertFile(c.TLS.CA); err != nil {
			return nil, fmt.Errorf("config: load ca bundle: %w", err)
		}
	}
	if c.TLS.Cert == "" {
		return pool.ClientTLS(c.TLS.Name), nil
	}

	watcher, err := tlsroots.NewWatcher(c.TLS.Cert, c.TLS.Key, tlsroots.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("config: load client keypair: %w", err)
	}
	go func() {
		if err := watcher.Start(); err != nil {
			log.Warn("client certificate watcher stopped", "error", err)
		}
	}()
	return watcher.ClientTLS(pool, c.TLS.Name), nil
}
