package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// Typed command entry points for the storage-backend surface. Each
// validates the reply shape and maps protocol values to Go results;
// an unexpected shape is a KindProtocol error, never a silent default.

// Ping checks server liveness.
func (c *Client) Ping(ctx context.Context) error {
	v, err := c.do(ctx, cmdArgs("PING"))
	if err != nil {
		return err
	}
	if v.Type != resp.TypeSimpleString {
		return shapeErr("PING", v, "simple string")
	}
	return nil
}

// Echo returns the message the server echoes back.
func (c *Client) Echo(ctx context.Context, msg string) (string, error) {
	v, err := c.do(ctx, cmdArgs("ECHO", msg))
	if err != nil {
		return "", err
	}
	b, err := bulkPayload("ECHO", v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Get fetches the value of key. A missing key yields ErrNil, distinct
// from an empty value.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.do(ctx, cmdArgs("GET", key))
	if err != nil {
		return nil, err
	}
	return bulkPayload("GET", v)
}

// Set stores value under key without expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	v, err := c.do(ctx, [][]byte{[]byte("SET"), []byte(key), value})
	if err != nil {
		return err
	}
	return expectOK("SET", v)
}

// SetWithTTL stores value under key with a relative expiry. TTLs are
// sent with millisecond precision; ttl <= 0 behaves like Set.
func (c *Client) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Set(ctx, key, value)
	}
	ms := strconv.FormatInt(ttl.Milliseconds(), 10)
	v, err := c.do(ctx, [][]byte{[]byte("SET"), []byte(key), value, []byte("PX"), []byte(ms)})
	if err != nil {
		return err
	}
	return expectOK("SET", v)
}

// Del removes keys, returning how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	v, err := c.do(ctx, cmdArgs("DEL", keys...))
	if err != nil {
		return 0, err
	}
	return integerPayload("DEL", v)
}

// Exists returns how many of the given keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	v, err := c.do(ctx, cmdArgs("EXISTS", keys...))
	if err != nil {
		return 0, err
	}
	return integerPayload("EXISTS", v)
}

// Append appends value to key and returns the new length.
func (c *Client) Append(ctx context.Context, key string, value []byte) (int64, error) {
	v, err := c.do(ctx, [][]byte{[]byte("APPEND"), []byte(key), value})
	if err != nil {
		return 0, err
	}
	return integerPayload("APPEND", v)
}

// Incr increments key by one.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	v, err := c.do(ctx, cmdArgs("INCR", key))
	if err != nil {
		return 0, err
	}
	return integerPayload("INCR", v)
}

// IncrBy increments key by delta.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	v, err := c.do(ctx, cmdArgs("INCRBY", key, strconv.FormatInt(delta, 10)))
	if err != nil {
		return 0, err
	}
	return integerPayload("INCRBY", v)
}

// Decr decrements key by one.
func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	v, err := c.do(ctx, cmdArgs("DECR", key))
	if err != nil {
		return 0, err
	}
	return integerPayload("DECR", v)
}

// Expire sets a relative expiry on key. It returns false when the key
// does not exist.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	secs := strconv.FormatInt(int64(ttl/time.Second), 10)
	v, err := c.do(ctx, cmdArgs("EXPIRE", key, secs))
	if err != nil {
		return false, err
	}
	n, err := integerPayload("EXPIRE", v)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// NoExpiry is returned by TTL for keys that exist without an expiry.
const NoExpiry = time.Duration(-1)

// TTL returns the remaining time to live of key. Keys without expiry
// return NoExpiry; missing keys return ErrNil.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	v, err := c.do(ctx, cmdArgs("PTTL", key))
	if err != nil {
		return 0, err
	}
	n, err := integerPayload("PTTL", v)
	if err != nil {
		return 0, err
	}
	switch n {
	case -2:
		return 0, ErrNil
	case -1:
		return NoExpiry, nil
	default:
		return time.Duration(n) * time.Millisecond, nil
	}
}

// Scan iterates the keyspace incrementally. Pass the cursor from the
// previous call (0 to start); iteration is complete when the returned
// cursor is 0 again. match and count are optional (empty/zero to omit).
func (c *Client) Scan(ctx context.Context, cursor uint64, match string, count int64) (uint64, []string, error) {
	args := [][]byte{[]byte("SCAN"), []byte(strconv.FormatUint(cursor, 10))}
	if match != "" {
		args = append(args, []byte("MATCH"), []byte(match))
	}
	if count > 0 {
		args = append(args, []byte("COUNT"), []byte(strconv.FormatInt(count, 10)))
	}

	v, err := c.do(ctx, args)
	if err != nil {
		return 0, nil, err
	}
	if v.Type != resp.TypeArray || v.Null || len(v.Elems) != 2 {
		return 0, nil, shapeErr("SCAN", v, "two-element array")
	}

	cursorBytes, err := bulkPayload("SCAN", v.Elems[0])
	if err != nil {
		return 0, nil, err
	}
	next, perr := strconv.ParseUint(string(cursorBytes), 10, 64)
	if perr != nil {
		return 0, nil, &Error{Kind: KindProtocol, Op: "SCAN", Message: "invalid cursor " + string(cursorBytes)}
	}

	page := v.Elems[1]
	if page.Type != resp.TypeArray || page.Null {
		return 0, nil, shapeErr("SCAN", page, "key array")
	}
	keys := make([]string, 0, len(page.Elems))
	for _, e := range page.Elems {
		kb, err := bulkPayload("SCAN", e)
		if err != nil {
			return 0, nil, err
		}
		keys = append(keys, string(kb))
	}
	return next, keys, nil
}

// Info returns the server's INFO text, optionally limited to sections.
func (c *Client) Info(ctx context.Context, sections ...string) (string, error) {
	v, err := c.do(ctx, cmdArgs("INFO", sections...))
	if err != nil {
		return "", err
	}
	b, err := bulkPayload("INFO", v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// cmdArgs builds an argument vector from a verb and string arguments.
func cmdArgs(verb string, args ...string) [][]byte {
	out := make([][]byte, 0, len(args)+1)
	out = append(out, []byte(verb))
	for _, a := range args {
		out = append(out, []byte(a))
	}
	return out
}

// Reply shape helpers.

func shapeErr(op string, v resp.Value, want string) *Error {
	return &Error{
		Kind:    KindProtocol,
		Op:      op,
		Message: fmt.Sprintf("unexpected %s reply, want %s", v.Type, want),
	}
}

// expectOK accepts any simple-string acknowledgement.
func expectOK(op string, v resp.Value) error {
	if v.Type != resp.TypeSimpleString {
		return shapeErr(op, v, "simple string")
	}
	return nil
}

// bulkPayload extracts bytes from a bulk (or simple) string reply.
// Nil replies map to ErrNil.
func bulkPayload(op string, v resp.Value) ([]byte, error) {
	if v.IsNil() {
		return nil, ErrNil
	}
	switch v.Type {
	case resp.TypeBulkString, resp.TypeSimpleString, resp.TypeVerbatimString:
		return v.Str, nil
	default:
		return nil, shapeErr(op, v, "bulk string")
	}
}

// integerPayload extracts an integer reply.
func integerPayload(op string, v resp.Value) (int64, error) {
	if v.Type != resp.TypeInteger {
		return 0, shapeErr(op, v, "integer")
	}
	return v.Int, nil
}
