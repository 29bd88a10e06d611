package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of pool state, consumed by the
// telemetry collector.
type Stats struct {
	// Open is the number of live connections (idle + on loan).
	Open int
	// Idle is the number of connections waiting in the free list.
	Idle int
	// Waiting is the number of callers blocked in Acquire.
	Waiting int

	// Hits counts acquisitions served from the free list.
	Hits uint64
	// Misses counts acquisitions that had to dial.
	Misses uint64
	// Timeouts counts acquisitions that gave up waiting.
	Timeouts uint64
	// Evictions counts broken or expired connections discarded.
	Evictions uint64
}

// Pool owns a bounded set of connections. Each Acquire lends one
// connection exclusively to one caller; Release returns it or, if it
// broke during the loan, discards it. All bookkeeping lives under one
// mutex; waiting happens on per-waiter channels so Release can hand a
// connection straight to the longest-waiting caller.
type Pool struct {
	settings *Settings
	dial     func(context.Context) (*Conn, error)
	log      *slog.Logger

	mu      sync.Mutex
	idle    []*Conn      // LIFO free list
	waiters []chan *Conn // FIFO; nil delivery grants a dial slot
	numOpen int          // live conns plus granted dial slots
	closed  bool

	hits      uint64
	misses    uint64
	timeouts  uint64
	evictions uint64
}

// newPool constructs a pool. Connections are dialed lazily; MinIdle
// connections are warmed synchronously on a best-effort basis.
func newPool(settings *Settings) *Pool {
	p := &Pool{
		settings: settings,
		log:      settings.Logger,
		dial: func(ctx context.Context) (*Conn, error) {
			return dialConn(ctx, settings)
		},
	}
	p.warm()
	return p
}

func (p *Pool) warm() {
	for i := 0; i < p.settings.MinIdle; i++ {
		c, err := p.dial(context.Background())
		if err != nil {
			p.log.Warn("pool warm-up dial failed", "error", err)
			return
		}
		p.mu.Lock()
		p.numOpen++
		p.idle = append(p.idle, c)
		p.mu.Unlock()
	}
}

// Acquire returns a healthy connection marked busy. Preference order:
// an idle connection, then a fresh dial while under PoolSize, then
// waiting for a release. Waiting ends with ErrPoolExhausted after
// WaitTimeout, or earlier if ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	// Idle connections first, discarding stale ones. Health here is
	// the cached state only; no round-trip probe.
	for n := len(p.idle); n > 0; n = len(p.idle) {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		if c.Broken() || c.expired(p.settings.IdleTimeout) {
			p.numOpen--
			p.evictions++
			p.mu.Unlock()
			c.Close()
			p.mu.Lock()
			continue
		}
		c.state.Store(stateBusy)
		p.hits++
		p.mu.Unlock()
		return c, nil
	}

	// Under capacity: take a dial slot.
	if p.numOpen < p.settings.PoolSize {
		p.numOpen++
		p.misses++
		p.mu.Unlock()
		return p.dialSlot(ctx)
	}

	// At capacity: wait for a release to hand over a connection (or a
	// dial slot when the released connection was broken).
	w := make(chan *Conn, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	timer := time.NewTimer(p.settings.WaitTimeout)
	defer timer.Stop()

	select {
	case c, ok := <-w:
		if !ok {
			// Pool closed while waiting; no slot was granted.
			return nil, ErrClosed
		}
		if c == nil {
			return p.dialSlot(ctx)
		}
		return c, nil
	case <-ctx.Done():
		p.abandonWait(w)
		p.mu.Lock()
		p.timeouts++
		p.mu.Unlock()
		return nil, wireErr(KindTimeout, "acquire", "context done while waiting for connection", ctx.Err())
	case <-timer.C:
		p.abandonWait(w)
		p.mu.Lock()
		p.timeouts++
		p.mu.Unlock()
		return nil, ErrPoolExhausted
	}
}

// dialSlot dials a new connection for a caller that holds a slot
// (numOpen already counts it). On failure the slot is returned.
func (p *Pool) dialSlot(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.numOpen--
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	c, err := p.dial(ctx)
	if err != nil {
		p.releaseSlot()
		return nil, err
	}
	c.state.Store(stateBusy)
	return c, nil
}

// releaseSlot gives up a dial slot, passing it to the next waiter when
// one exists.
func (p *Pool) releaseSlot() {
	p.mu.Lock()
	if len(p.waiters) > 0 && !p.closed {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		w <- nil // slot transferred; waiter dials
		return
	}
	p.numOpen--
	p.mu.Unlock()
}

// abandonWait removes w from the waiter list. If a connection or slot
// was handed over concurrently, it is put back.
func (p *Pool) abandonWait(w chan *Conn) {
	p.mu.Lock()
	for i, cand := range p.waiters {
		if cand == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	// w is no longer listed, so Release, releaseSlot or Close already
	// popped it and a send or close is committed. The receive must
	// block: the signaler may still be between the pop and the send,
	// and a missed delivery would strand an open-counted connection.
	c, ok := <-w
	if !ok {
		return
	}
	if c == nil {
		p.releaseSlot()
	} else {
		p.Release(c)
	}
}

// Release returns a loaned connection. Healthy connections go to the
// longest waiter or back to the free list; broken ones are closed and
// dropped, with replacement deferred to the next Acquire.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.numOpen--
		p.mu.Unlock()
		c.Close()
		return
	}

	if c.Broken() {
		p.evictions++
		p.mu.Unlock()
		c.Close()
		p.releaseSlot()
		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		w <- c // stays busy; ownership passes directly
		return
	}

	c.state.Store(stateIdle)
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Close tears the pool down: idle connections are closed immediately,
// waiters are woken with ErrClosed, loans are closed as their holders
// release them.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	waiters := p.waiters
	p.waiters = nil
	p.numOpen -= len(idle)
	p.mu.Unlock()

	for _, w := range waiters {
		close(w) // receivers observe the close and return ErrClosed
	}
	var firstErr error
	for _, c := range idle {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats returns a snapshot of the pool's counters and gauges.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Open:      p.numOpen,
		Idle:      len(p.idle),
		Waiting:   len(p.waiters),
		Hits:      p.hits,
		Misses:    p.misses,
		Timeouts:  p.timeouts,
		Evictions: p.evictions,
	}
}
