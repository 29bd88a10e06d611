package redis

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// fakeServer is an in-process scripted RESP server. Each accepted
// connection decodes command frames and feeds them to the handler,
// which returns the raw reply bytes. A nil frame means no reply is
// sent (the client will hit its read deadline); hangUp closes the
// connection instead.
type fakeServer struct {
	tb     testing.TB
	ln     net.Listener
	handle func(cmd [][]byte) ([]byte, bool)

	active atomic.Int32
	peak   atomic.Int32
	dials  atomic.Int32

	mu  sync.Mutex
	log [][]string
}

func newFakeServer(tb testing.TB, handle func(cmd [][]byte) ([]byte, bool)) *fakeServer {
	tb.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}
	s := &fakeServer{tb: tb, ln: ln, handle: handle}
	go s.acceptLoop()
	tb.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeServer) Addr() string { return s.ln.Addr().String() }

// Commands returns every command received so far, in arrival order.
func (s *fakeServer) Commands() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.log))
	copy(out, s.log)
	return out
}

// PeakConns returns the highest number of simultaneously open
// connections observed.
func (s *fakeServer) PeakConns() int32 { return s.peak.Load() }

// Dials returns the total number of accepted connections.
func (s *fakeServer) Dials() int32 { return s.dials.Load() }

func (s *fakeServer) acceptLoop() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.dials.Add(1)
		if n := s.active.Add(1); n > s.peak.Load() {
			s.peak.Store(n)
		}
		go s.serve(c)
	}
}

func (s *fakeServer) serve(c net.Conn) {
	defer func() {
		c.Close()
		s.active.Add(-1)
	}()

	dec := resp.NewDecoder()
	buf := make([]byte, 4096)
	for {
		v, err := dec.Next()
		if errors.Is(err, resp.ErrIncomplete) {
			n, rerr := c.Read(buf)
			if n > 0 {
				dec.Feed(buf[:n])
			}
			if rerr != nil {
				return
			}
			continue
		}
		if err != nil {
			return
		}

		cmd := commandVector(v)
		s.record(cmd)
		out, drop := s.handle(cmd)
		if len(out) > 0 {
			if _, err := c.Write(out); err != nil {
				return
			}
		}
		if drop {
			return
		}
	}
}

func (s *fakeServer) record(cmd [][]byte) {
	args := make([]string, len(cmd))
	for i, a := range cmd {
		args[i] = string(a)
	}
	s.mu.Lock()
	s.log = append(s.log, args)
	s.mu.Unlock()
}

// commandVector flattens a decoded command array into its arguments.
func commandVector(v resp.Value) [][]byte {
	out := make([][]byte, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = e.Str
	}
	return out
}

func frame(v resp.Value) []byte { return resp.AppendValue(nil, v) }

// scripted wraps a per-command handler with the handshake replies a
// freshly dialed connection expects, so tests only script the
// commands they care about.
func scripted(fn func(cmd [][]byte) resp.Value) func([][]byte) ([]byte, bool) {
	return func(cmd [][]byte) ([]byte, bool) {
		switch strings.ToUpper(string(cmd[0])) {
		case "AUTH", "SELECT":
			return frame(resp.SimpleString("OK")), false
		case "HELLO":
			return frame(helloReply()), false
		}
		return frame(fn(cmd)), false
	}
}

func helloReply() resp.Value {
	return resp.Value{Type: resp.TypeMap, Elems: []resp.Value{
		resp.BulkString([]byte("server")), resp.BulkString([]byte("redis")),
		resp.BulkString([]byte("proto")), resp.Integer(3),
	}}
}

// pingPong answers PONG to everything, handshake included.
func pingPong() func([][]byte) ([]byte, bool) {
	return scripted(func(cmd [][]byte) resp.Value {
		return resp.SimpleString("PONG")
	})
}

// miniStore is a scripted handler over an in-memory key space,
// enough to drive the typed command surface end to end.
func miniStore() func([][]byte) ([]byte, bool) {
	var mu sync.Mutex
	data := map[string][]byte{}

	return scripted(func(cmd [][]byte) resp.Value {
		mu.Lock()
		defer mu.Unlock()

		verb := strings.ToUpper(string(cmd[0]))
		switch verb {
		case "PING":
			return resp.SimpleString("PONG")
		case "ECHO":
			return resp.BulkString(cmd[1])
		case "GET":
			v, ok := data[string(cmd[1])]
			if !ok {
				return resp.NilBulk()
			}
			return resp.BulkString(v)
		case "SET":
			data[string(cmd[1])] = append([]byte(nil), cmd[2]...)
			return resp.SimpleString("OK")
		case "DEL":
			n := int64(0)
			for _, k := range cmd[1:] {
				if _, ok := data[string(k)]; ok {
					delete(data, string(k))
					n++
				}
			}
			return resp.Integer(n)
		case "EXISTS":
			n := int64(0)
			for _, k := range cmd[1:] {
				if _, ok := data[string(k)]; ok {
					n++
				}
			}
			return resp.Integer(n)
		case "APPEND":
			k := string(cmd[1])
			data[k] = append(data[k], cmd[2]...)
			return resp.Integer(int64(len(data[k])))
		case "INCR", "INCRBY", "DECR":
			return applyCounter(data, verb, cmd)
		default:
			return resp.Error("ERR unknown command '" + string(cmd[0]) + "'")
		}
	})
}

func applyCounter(data map[string][]byte, verb string, cmd [][]byte) resp.Value {
	k := string(cmd[1])
	cur := int64(0)
	if raw, ok := data[k]; ok {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return resp.Error("ERR value is not an integer or out of range")
		}
		cur = n
	}
	switch verb {
	case "INCR":
		cur++
	case "DECR":
		cur--
	case "INCRBY":
		d, err := strconv.ParseInt(string(cmd[2]), 10, 64)
		if err != nil {
			return resp.Error("ERR value is not an integer or out of range")
		}
		cur += d
	}
	data[k] = strconv.AppendInt(nil, cur, 10)
	return resp.Integer(cur)
}
