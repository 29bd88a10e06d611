package redis

import (
	"context"
	"time"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// Pipeline batches commands onto a single connection: every queued
// frame is written in one flush, then the replies are read back in
// strict FIFO order (RESP carries no request identifiers, so order is
// the only correlation). A pipeline is not atomic; it only saves round
// trips.
//
// A Pipeline is single-use and not safe for concurrent use.
type Pipeline struct {
	client *Client
	cmds   [][][]byte
	names  []string
	err    error
}

// Pipeline returns an empty pipeline bound to the client.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{client: c}
}

// Do queues a command. Argument conversion errors are deferred to
// Exec so calls can be chained.
func (p *Pipeline) Do(args ...any) *Pipeline {
	if p.err != nil {
		return p
	}
	cmd, err := buildCommand(args)
	if err != nil {
		p.err = err
		return p
	}
	p.cmds = append(p.cmds, cmd)
	p.names = append(p.names, commandName(cmd))
	return p
}

// Len returns the number of queued commands.
func (p *Pipeline) Len() int { return len(p.cmds) }

// Result holds one reply of an executed pipeline. Err is set for
// server error replies; the remaining results are still valid.
type Result struct {
	Value resp.Value
	Err   error
}

// Exec sends all queued commands and collects their replies. A
// transport or protocol failure breaks the connection and aborts the
// exchange: the returned error describes the failure and the result
// slice holds only the replies received before it. Server error
// replies do not abort; they appear as Result.Err entries. Every
// queued command is reported to the client's Observer, all sharing the
// batch round-trip time.
func (p *Pipeline) Exec(ctx context.Context) ([]Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.cmds) == 0 {
		return nil, nil
	}

	start := time.Now()
	results, err := p.exec(ctx)
	if obs := p.client.observer; obs != nil {
		elapsed := time.Since(start)
		for i, name := range p.names {
			if i < len(results) {
				obs.ObserveCommand(name, results[i].Err, elapsed)
			} else {
				obs.ObserveCommand(name, err, elapsed)
			}
		}
	}
	return results, err
}

func (p *Pipeline) exec(ctx context.Context) ([]Result, error) {
	conn, err := p.client.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.client.pool.Release(conn)

	var frame []byte
	for _, cmd := range p.cmds {
		frame, err = resp.AppendCommand(frame, cmd)
		if err != nil {
			return nil, wireErr(KindConfig, "pipeline", "encode command", err)
		}
	}
	if err := conn.writeFrame(ctx, frame); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(p.cmds))
	for i := range p.cmds {
		v, err := conn.readReply(ctx)
		if err != nil {
			// Conn is broken; replies past this point are unrecoverable.
			return results, err
		}
		r := Result{Value: v}
		if v.IsError() {
			r.Err = serverError(p.names[i], v)
		}
		results = append(results, r)
	}
	conn.lastUsed = time.Now()
	return results, nil
}
