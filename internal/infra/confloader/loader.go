package confloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "REDWIRE_"

// Loader merges configuration sources into one koanf tree.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the configuration file path. Empty means no
// file source.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges file and environment sources and unmarshals the result
// into target via its koanf struct tags.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile merges a YAML file into the tree.
func (l *Loader) LoadFile(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges prefixed environment variables into the tree.
// REDWIRE_CLIENT_POOL_SIZE maps to client.pool.size.
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadMap merges explicit key/value overrides, the highest-priority
// source. Keys use dotted paths.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	return nil
}

// Unmarshal decodes the merged tree into target.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// String returns the string at the dotted key, or "".
func (l *Loader) String(key string) string { return l.k.String(key) }

// Int returns the int at the dotted key, or 0.
func (l *Loader) Int(key string) int { return l.k.Int(key) }

// Bool returns the bool at the dotted key, or false.
func (l *Loader) Bool(key string) bool { return l.k.Bool(key) }

// All returns the merged tree as a flat map.
func (l *Loader) All() map[string]any { return l.k.All() }

// ErrReadBytesNotSupported is returned when koanf asks a map provider
// for raw bytes.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form, use Read")

// mapProvider adapts a nested map to koanf's provider interface.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) { return nil, ErrReadBytesNotSupported }

func (m mapProvider) Read() (map[string]any, error) { return m, nil }
