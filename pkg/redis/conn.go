package redis

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// Connection states. Broken is terminal: the pool closes and discards
// broken connections instead of re-lending them.
const (
	stateIdle int32 = iota
	stateBusy
	stateBroken
)

// Conn owns one transport stream to the server. It pairs the stream
// with the RESP decoder (which retains unconsumed bytes between
// commands) and a buffered writer. A Conn is used by one caller at a
// time; the pool's loan bookkeeping enforces that.
type Conn struct {
	id string
	nc net.Conn

	bw   *bufio.Writer
	dec  *resp.Decoder
	rbuf []byte
	wbuf []byte

	settings *Settings
	log      *slog.Logger

	state    atomic.Int32
	closed   atomic.Bool
	lastUsed time.Time
}

// dialConn establishes the transport and runs the setup handshake
// (HELLO or AUTH, then SELECT) as one atomic sequence. Any failure
// closes the socket; no half-initialized Conn escapes.
func dialConn(ctx context.Context, settings *Settings) (*Conn, error) {
	ep, err := ParseEndpoint(settings.Address)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, settings.DialTimeout)
	defer cancel()

	d := net.Dialer{}
	nc, err := d.DialContext(dialCtx, ep.Network, ep.Addr)
	if err != nil {
		if isTimeout(err) {
			return nil, wireErr(KindTimeout, "dial", ep.Addr, err)
		}
		return nil, wireErr(KindConnect, "dial", ep.Addr, err)
	}

	if ep.TLS {
		cfg := settings.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		if cfg.ServerName == "" {
			host, _, splitErr := net.SplitHostPort(ep.Addr)
			if splitErr == nil {
				cfg = cfg.Clone()
				cfg.ServerName = host
			}
		}
		tc := tls.Client(nc, cfg)
		if err := tc.HandshakeContext(dialCtx); err != nil {
			nc.Close()
			return nil, wireErr(KindConnect, "tls handshake", ep.Addr, err)
		}
		nc = tc
	}

	c := &Conn{
		id:       ulid.Make().String(),
		nc:       nc,
		bw:       bufio.NewWriter(nc),
		dec:      resp.NewDecoder(),
		rbuf:     make([]byte, 4096),
		settings: settings,
		log:      settings.Logger,
		lastUsed: time.Now(),
	}

	if err := c.setup(dialCtx); err != nil {
		c.Close()
		return nil, err
	}

	c.log.Debug("connection opened", "conn_id", c.id, "addr", ep.Addr)
	return c, nil
}

// setup runs the authentication handshake and database selection.
// Errors are reported as KindConnect regardless of their transport
// cause: the connection never reached a usable state.
func (c *Conn) setup(ctx context.Context) error {
	s := c.settings

	if s.Protocol == 3 {
		hello := [][]byte{[]byte("HELLO"), []byte("3")}
		if s.Password != "" {
			user := s.Username
			if user == "" {
				user = "default"
			}
			hello = append(hello, []byte("AUTH"), []byte(user), []byte(s.Password))
		}
		if err := c.setupCommand(ctx, hello); err != nil {
			return err
		}
	} else if s.Password != "" {
		auth := [][]byte{[]byte("AUTH")}
		if s.Username != "" {
			auth = append(auth, []byte(s.Username))
		}
		auth = append(auth, []byte(s.Password))
		if err := c.setupCommand(ctx, auth); err != nil {
			return err
		}
	}

	if s.DB != 0 {
		sel := [][]byte{[]byte("SELECT"), []byte(strconv.Itoa(s.DB))}
		if err := c.setupCommand(ctx, sel); err != nil {
			return err
		}
	}
	return nil
}

// setupCommand executes one handshake command. Every failure mode,
// including a server error reply such as -WRONGPASS, is surfaced as
// KindConnect: the connection never became usable.
func (c *Conn) setupCommand(ctx context.Context, args [][]byte) error {
	op := string(args[0])
	v, err := c.Execute(ctx, args)
	if err != nil {
		return wireErr(KindConnect, op, "handshake failed", err)
	}
	if v.IsError() {
		return wireErr(KindConnect, op, "handshake rejected", serverError(op, v))
	}
	return nil
}

// Execute writes one encoded command and reads exactly one complete
// reply. Timeouts, write failures and decode errors mark the Conn
// broken before returning, so the pool never re-lends it. An error
// reply from the server is returned as a Value with IsError set; the
// connection stays healthy. A context deadline tightens, but cannot
// extend, the configured read/write timeouts.
func (c *Conn) Execute(ctx context.Context, args [][]byte) (resp.Value, error) {
	if c.state.Load() == stateBroken {
		return resp.Value{}, wireErr(KindIO, "execute", "connection is broken", nil)
	}
	if err := ctx.Err(); err != nil {
		return resp.Value{}, wireErr(KindTimeout, "execute", "context done before send", err)
	}

	wb, err := resp.AppendCommand(c.wbuf[:0], args)
	if err != nil {
		// Nothing was written; the connection is still in sync.
		return resp.Value{}, wireErr(KindConfig, "execute", "encode command", err)
	}
	c.wbuf = wb

	if err := c.writeFrame(ctx, wb); err != nil {
		return resp.Value{}, err
	}
	v, err := c.readReply(ctx)
	if err != nil {
		return resp.Value{}, err
	}
	c.lastUsed = time.Now()
	return v, nil
}

// writeFrame writes raw frame bytes under the write deadline.
func (c *Conn) writeFrame(ctx context.Context, frame []byte) error {
	c.nc.SetWriteDeadline(deadline(ctx, c.settings.WriteTimeout))
	_, err := c.bw.Write(frame)
	if err == nil {
		err = c.bw.Flush()
	}
	if err != nil {
		return c.failWrite(err)
	}
	return nil
}

func (c *Conn) failWrite(err error) error {
	c.markBroken("write", err)
	if isTimeout(err) {
		return wireErr(KindTimeout, "write", "command write timed out", err)
	}
	return wireErr(KindIO, "write", "command write failed", err)
}

// readReply feeds socket bytes into the decoder until one complete
// reply appears or the read deadline elapses.
func (c *Conn) readReply(ctx context.Context) (resp.Value, error) {
	c.nc.SetReadDeadline(deadline(ctx, c.settings.ReadTimeout))
	for {
		v, err := c.dec.Next()
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			c.markBroken("decode", err)
			return resp.Value{}, wireErr(KindProtocol, "read", "malformed reply", err)
		}

		n, rerr := c.nc.Read(c.rbuf)
		if n > 0 {
			c.dec.Feed(c.rbuf[:n])
			continue
		}
		if rerr == nil {
			continue
		}
		c.markBroken("read", rerr)
		switch {
		case isTimeout(rerr):
			return resp.Value{}, wireErr(KindTimeout, "read", "reply read timed out", rerr)
		case errors.Is(rerr, io.EOF):
			return resp.Value{}, wireErr(KindIO, "read", "connection closed by server", rerr)
		default:
			return resp.Value{}, wireErr(KindIO, "read", "reply read failed", rerr)
		}
	}
}

// ID returns the connection's ULID, used for log and metric
// correlation.
func (c *Conn) ID() string { return c.id }

// Broken reports whether the connection has been marked unusable.
func (c *Conn) Broken() bool { return c.state.Load() == stateBroken }

func (c *Conn) markBroken(op string, cause error) {
	if c.state.Swap(stateBroken) != stateBroken {
		c.log.Debug("connection broken", "conn_id", c.id, "op", op, "error", cause)
	}
}

// Close releases the transport. Safe to call more than once and on all
// exit paths.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.state.Store(stateBroken)
	err := c.nc.Close()
	c.log.Debug("connection closed", "conn_id", c.id)
	return err
}

// expired reports whether the connection idled past the configured
// limit.
func (c *Conn) expired(idleTimeout time.Duration) bool {
	return idleTimeout > 0 && time.Since(c.lastUsed) > idleTimeout
}

// deadline merges the configured timeout with the context deadline,
// whichever comes first.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	t := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(t) {
		return d
	}
	return t
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout() || errors.Is(err, context.DeadlineExceeded)
}
