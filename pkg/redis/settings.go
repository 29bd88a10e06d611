package redis

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is used when Settings.Address is empty.
const DefaultEndpoint = "tcp://127.0.0.1:6379"

const defaultPort = "6379"

// Defaults applied by withDefaults.
const (
	DefaultPoolSize    = 8
	DefaultDialTimeout = 5 * time.Second
	DefaultIOTimeout   = 3 * time.Second
	DefaultWaitTimeout = 3 * time.Second
	DefaultIdleTimeout = 5 * time.Minute
)

// Settings configures a Client. The zero value connects to a local
// Redis on the default port with no auth, database 0 and RESP2.
// Settings are read once at construction and never mutated afterwards.
type Settings struct {
	// Address is the endpoint URI of the Redis service, e.g.
	// "tcp://127.0.0.1:6379", "rediss://cache.internal:6380" or
	// "unix:///var/run/redis.sock". A bare "host:port" is accepted.
	Address string

	// Addresses lists endpoints for the client-side sharded mode; see
	// NewSharded. Ignored by New.
	Addresses []string

	// Username and Password configure the AUTH/HELLO handshake on each
	// new connection. Username requires RESP's two-argument AUTH form.
	Username string
	Password string

	// DB is the database index selected on each new connection.
	DB int

	// Protocol selects the wire protocol: 2 (default, AUTH handshake)
	// or 3 (HELLO handshake, RESP3 reply types).
	Protocol int

	// TLSConfig is used for rediss:// endpoints. nil means the default
	// system roots. TLS material loading is the caller's concern.
	TLSConfig *tls.Config

	// PoolSize bounds live connections (idle + busy). MinIdle
	// connections are dialed eagerly at construction.
	PoolSize int
	MinIdle  int

	// Timeouts. DialTimeout covers transport dial plus handshake;
	// ReadTimeout and WriteTimeout apply per command; WaitTimeout
	// bounds waiting for a pooled connection; IdleTimeout discards
	// connections unused for that long.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	WaitTimeout  time.Duration
	IdleTimeout  time.Duration

	// Logger receives connection lifecycle events. nil disables
	// logging. Credentials are never logged.
	Logger *slog.Logger
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (s Settings) withDefaults() Settings {
	if s.Address == "" {
		s.Address = DefaultEndpoint
	}
	if s.Protocol == 0 {
		s.Protocol = 2
	}
	if s.PoolSize <= 0 {
		s.PoolSize = DefaultPoolSize
	}
	if s.MinIdle < 0 {
		s.MinIdle = 0
	}
	if s.MinIdle > s.PoolSize {
		s.MinIdle = s.PoolSize
	}
	if s.DialTimeout <= 0 {
		s.DialTimeout = DefaultDialTimeout
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultIOTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultIOTimeout
	}
	if s.WaitTimeout <= 0 {
		s.WaitTimeout = DefaultWaitTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// validate rejects settings that cannot produce a working client.
func (s Settings) validate() error {
	if _, err := ParseEndpoint(s.Address); err != nil {
		return err
	}
	if s.Protocol != 2 && s.Protocol != 3 {
		return &Error{Kind: KindConfig, Message: fmt.Sprintf("unsupported protocol version %d", s.Protocol)}
	}
	if s.DB < 0 {
		return &Error{Kind: KindConfig, Message: fmt.Sprintf("negative database index %d", s.DB)}
	}
	return nil
}

// String renders the settings for logs with the password redacted.
func (s Settings) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "redis.Settings{address: %s", s.Address)
	if len(s.Addresses) > 0 {
		fmt.Fprintf(&b, ", addresses: %s", strings.Join(s.Addresses, ","))
	}
	if s.Username != "" {
		fmt.Fprintf(&b, ", username: %s", s.Username)
	}
	if s.Password != "" {
		b.WriteString(", password: <redacted>")
	}
	fmt.Fprintf(&b, ", db: %d, pool: %d}", s.DB, s.PoolSize)
	return b.String()
}

// RedactEndpoint strips any userinfo password from an endpoint URI so
// it can be logged. Endpoints without credentials pass through
// unchanged.
func RedactEndpoint(endpoint string) string {
	if !strings.Contains(endpoint, "@") || !strings.Contains(endpoint, "://") {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.User == nil {
		return endpoint
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// Endpoint is a parsed transport target.
type Endpoint struct {
	// Network is "tcp" or "unix", suitable for net.Dial.
	Network string
	// Addr is the host:port or socket path.
	Addr string
	// TLS is set for rediss:// endpoints.
	TLS bool
}

// ParseEndpoint parses an endpoint URI. Supported schemes are tcp://
// and redis:// (plaintext), rediss:// (TLS) and unix:// or
// redis+unix:// (unix domain socket). A bare host:port is treated as
// tcp. Missing host and port default to 127.0.0.1:6379.
func ParseEndpoint(endpoint string) (Endpoint, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		return Endpoint{Network: "tcp", Addr: withDefaultPort(endpoint)}, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return Endpoint{}, &Error{Kind: KindConfig, Message: "invalid endpoint " + endpoint, Err: err}
	}

	switch u.Scheme {
	case "tcp", "redis":
		return Endpoint{Network: "tcp", Addr: hostPort(u)}, nil
	case "rediss":
		return Endpoint{Network: "tcp", Addr: hostPort(u), TLS: true}, nil
	case "unix", "redis+unix":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return Endpoint{}, &Error{Kind: KindConfig, Message: "unix endpoint missing socket path"}
		}
		return Endpoint{Network: "unix", Addr: path}, nil
	default:
		return Endpoint{}, &Error{Kind: KindConfig, Message: "invalid or unsupported scheme " + u.Scheme}
	}
}

func hostPort(u *url.URL) string {
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, defaultPort)
}
