package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// Observer receives per-command telemetry. Implementations must be
// safe for concurrent use.
type Observer interface {
	// ObserveCommand is called once per executed command with the
	// normalized command name, the outcome and the elapsed time
	// including pool acquisition.
	ObserveCommand(cmd string, err error, elapsed time.Duration)
}

// Client is the public command execution façade. It is stateless
// across calls except for the pool it owns and is safe for concurrent
// use; every call independently borrows and returns a connection.
type Client struct {
	settings Settings
	pool     *Pool
	log      *slog.Logger
	observer Observer
}

// Option configures a Client at construction.
type Option func(*Client)

// WithObserver attaches a command observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New constructs a Client from settings. The pool dials lazily;
// MinIdle connections are warmed immediately on a best-effort basis,
// so New succeeds even when the server is briefly unreachable.
func New(settings Settings, opts ...Option) (*Client, error) {
	s := settings.withDefaults()
	if err := s.validate(); err != nil {
		return nil, err
	}

	c := &Client{settings: s, log: s.Logger}
	for _, opt := range opts {
		opt(c)
	}
	c.pool = newPool(&c.settings)
	return c, nil
}

// Do executes an arbitrary command. Arguments may be string, []byte,
// integer, float64 or bool; the first must be the command verb.
// Server error replies are returned as *Error with KindServer.
func (c *Client) Do(ctx context.Context, args ...any) (resp.Value, error) {
	cmd, err := buildCommand(args)
	if err != nil {
		return resp.Value{}, err
	}
	return c.do(ctx, cmd)
}

func (c *Client) do(ctx context.Context, cmd [][]byte) (resp.Value, error) {
	name := commandName(cmd)
	start := time.Now()
	v, err := c.exec(ctx, name, cmd)
	if c.observer != nil {
		c.observer.ObserveCommand(name, err, time.Since(start))
	}
	return v, err
}

// exec is the borrow/execute/return cycle. Release runs on every exit
// path; a broken connection is discarded by the pool, never re-lent.
func (c *Client) exec(ctx context.Context, name string, cmd [][]byte) (resp.Value, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return resp.Value{}, err
	}
	defer c.pool.Release(conn)

	v, err := conn.Execute(ctx, cmd)
	if err != nil {
		return resp.Value{}, err
	}
	if v.IsError() {
		return resp.Value{}, serverError(name, v)
	}
	return v, nil
}

// Stats returns the pool statistics snapshot.
func (c *Client) Stats() Stats { return c.pool.Stats() }

// Settings returns a copy of the effective settings.
func (c *Client) Settings() Settings { return c.settings }

// Close tears down the pool. In-flight commands fail as their
// connections are released; subsequent calls return ErrClosed.
func (c *Client) Close() error { return c.pool.Close() }

// buildCommand converts loosely typed arguments into the byte-string
// argument vector RESP requires.
func buildCommand(args []any) ([][]byte, error) {
	if len(args) == 0 {
		return nil, &Error{Kind: KindConfig, Op: "do", Message: "empty command"}
	}
	out := make([][]byte, 0, len(args))
	for i, a := range args {
		b, err := argBytes(a)
		if err != nil {
			return nil, &Error{Kind: KindConfig, Op: "do", Message: fmt.Sprintf("argument %d: %v", i, err)}
		}
		out = append(out, b)
	}
	return out, nil
}

func argBytes(a any) ([]byte, error) {
	switch v := a.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
	case bool:
		if v {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", a)
	}
}

// commandName returns the uppercased verb for logs and metrics.
func commandName(cmd [][]byte) string {
	if len(cmd) == 0 {
		return ""
	}
	verb := cmd[0]
	upper := make([]byte, len(verb))
	for i, ch := range verb {
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		upper[i] = ch
	}
	return string(upper)
}
