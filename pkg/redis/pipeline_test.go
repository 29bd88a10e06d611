package redis

import (
	"context"
	"testing"

	"github.com/yndnr/redwire-go/pkg/resp"
)

func TestPipelineFIFO(t *testing.T) {
	srv := newFakeServer(t, miniStore())
	c := newTestClient(t, srv.Addr())
	ctx := context.Background()

	results, err := c.Pipeline().
		Do("SET", "a", "1").
		Do("INCR", "a").
		Do("GET", "a").
		Do("GET", "missing").
		Exec(ctx)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	if results[0].Err != nil || results[0].Value.Text() != "OK" {
		t.Fatalf("result 0 = %q, %v", results[0].Value.Text(), results[0].Err)
	}
	if results[1].Err != nil || results[1].Value.Int != 2 {
		t.Fatalf("result 1 = %d, %v; want 2", results[1].Value.Int, results[1].Err)
	}
	if results[2].Err != nil || results[2].Value.Text() != "2" {
		t.Fatalf("result 2 = %q, %v", results[2].Value.Text(), results[2].Err)
	}
	if results[3].Err != nil || !results[3].Value.IsNil() {
		t.Fatalf("result 3 = %+v, want nil reply", results[3])
	}

	// The whole batch used a single connection.
	if n := srv.Dials(); n != 1 {
		t.Fatalf("server saw %d dials, want 1", n)
	}
}

func TestPipelineServerErrorDoesNotAbort(t *testing.T) {
	srv := newFakeServer(t, miniStore())
	c := newTestClient(t, srv.Addr())

	results, err := c.Pipeline().
		Do("PING").
		Do("NOSUCHCMD").
		Do("PING").
		Exec(context.Background())
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("healthy replies carry errors: %v, %v", results[0].Err, results[2].Err)
	}
	if ErrorKind(results[1].Err) != KindServer {
		t.Fatalf("result 1 kind = %v, want KindServer", ErrorKind(results[1].Err))
	}

	// Connection stays pooled; a later command reuses it.
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping after pipeline: %v", err)
	}
	if n := srv.Dials(); n != 1 {
		t.Fatalf("server saw %d dials, want 1", n)
	}
}

func TestPipelineTransportFailureAborts(t *testing.T) {
	// Reply to the first command, then hang up.
	srv := newFakeServer(t, func(cmd [][]byte) ([]byte, bool) {
		if string(cmd[0]) == "GET" {
			return nil, true
		}
		return frame(resp.SimpleString("PONG")), false
	})
	c := newTestClient(t, srv.Addr())

	results, err := c.Pipeline().
		Do("PING").
		Do("GET", "k").
		Do("PING").
		Exec(context.Background())
	if ErrorKind(err) != KindIO {
		t.Fatalf("exec kind = %v (err %v), want KindIO", ErrorKind(err), err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d partial results, want 1", len(results))
	}
	if results[0].Value.Text() != "PONG" {
		t.Fatalf("partial result = %q, want PONG", results[0].Value.Text())
	}

	// The broken connection was evicted, not re-lent.
	if st := c.Stats(); st.Evictions != 1 {
		t.Fatalf("stats = %+v, want 1 eviction", st)
	}
}

func TestPipelineEmptyAndDeferredErrors(t *testing.T) {
	srv := newFakeServer(t, miniStore())
	c := newTestClient(t, srv.Addr())

	results, err := c.Pipeline().Exec(context.Background())
	if err != nil || results != nil {
		t.Fatalf("empty pipeline = %v, %v; want nil, nil", results, err)
	}

	p := c.Pipeline().Do("SET", "k", struct{}{}).Do("PING")
	if p.Len() != 0 {
		t.Fatalf("commands queued after conversion error: %d", p.Len())
	}
	_, err = p.Exec(context.Background())
	if ErrorKind(err) != KindConfig {
		t.Fatalf("deferred error kind = %v, want KindConfig", ErrorKind(err))
	}
	if n := srv.Dials(); n != 0 {
		t.Fatalf("failed pipeline dialed %d times, want 0", n)
	}
}

func TestPipelineObserver(t *testing.T) {
	srv := newFakeServer(t, miniStore())
	obs := &recordingObserver{}
	c := newTestClient(t, srv.Addr(), WithObserver(obs))

	results, err := c.Pipeline().
		Do("SET", "k", "v").
		Do("NOSUCHCMD").
		Do("GET", "k").
		Exec(context.Background())
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	want := []string{"SET", "NOSUCHCMD", "GET"}
	if len(obs.entries) != len(want) {
		t.Fatalf("observer saw %v, want %v", obs.entries, want)
	}
	for i, name := range want {
		if obs.entries[i] != name {
			t.Fatalf("observer entry %d = %q, want %q", i, obs.entries[i], name)
		}
	}
	if obs.failed != 1 {
		t.Fatalf("observer failures = %d, want 1 for the server error", obs.failed)
	}
}
