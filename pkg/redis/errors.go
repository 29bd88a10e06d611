package redis

import (
	"errors"
	"strings"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// Kind classifies client errors so callers can pick a retry policy
// without string matching.
type Kind int

const (
	// KindUnknown is the zero kind.
	KindUnknown Kind = iota

	// KindConfig reports invalid settings or endpoint syntax.
	KindConfig

	// KindConnect reports a failed dial or setup handshake. The
	// connection never became usable; retrying creates a fresh one.
	KindConnect

	// KindIO reports a read or write failure on an established
	// connection. The connection is broken and evicted.
	KindIO

	// KindProtocol reports malformed bytes from the server. Always
	// fatal to the connection.
	KindProtocol

	// KindTimeout reports an elapsed read, write or dial deadline.
	// Fatal to the connection: a late reply into a reused buffer would
	// desynchronize the stream.
	KindTimeout

	// KindServer reports a well-formed error reply. The connection
	// stays healthy.
	KindServer

	// KindPoolExhausted reports that no connection became available
	// within the acquire timeout. Nothing was sent; safe to retry.
	KindPoolExhausted

	// KindClosed reports use of a closed client or pool.
	KindClosed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindConnect:
		return "connect"
	case KindIO:
		return "io"
	case KindProtocol:
		return "protocol"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindPoolExhausted:
		return "pool-exhausted"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package. Code is set only
// for KindServer and holds the leading token of the server reply
// ("ERR", "WRONGTYPE", "NOAUTH", ...).
type Error struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("redis: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same Kind; when the target carries a server
// code, the codes must match too. This makes sentinel comparisons like
// errors.Is(err, ErrPoolExhausted) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if t.Code != "" && e.Code != t.Code {
		return false
	}
	return true
}

// Sentinel errors.
var (
	// ErrNil reports a nil reply: the key does not exist. Distinct from
	// an empty value.
	ErrNil = errors.New("redis: nil reply")

	// ErrPoolExhausted reports that Acquire timed out with every
	// connection on loan.
	ErrPoolExhausted = &Error{Kind: KindPoolExhausted, Op: "acquire", Message: "connection pool exhausted"}

	// ErrClosed reports use after Close.
	ErrClosed = &Error{Kind: KindClosed, Message: "client is closed"}
)

// serverError converts an error reply value into a KindServer error.
func serverError(op string, v resp.Value) *Error {
	return &Error{
		Kind:    KindServer,
		Op:      op,
		Code:    v.ErrorCode(),
		Message: string(v.Str),
	}
}

// wireErr builds a transport-level error for op.
func wireErr(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// ErrorKind extracts the Kind from err, or KindUnknown when err is not
// an *Error from this package.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HasCode reports whether err is a server error carrying the given
// code token, e.g. HasCode(err, "WRONGTYPE").
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindServer && e.Code == code
	}
	return false
}

// IsRetryable reports whether the failure happened without a command
// reaching the server state machine (pool exhaustion) or on a
// connection that has been evicted (timeout, I/O), so a retry on a
// fresh connection is reasonable for idempotent commands.
func IsRetryable(err error) bool {
	switch ErrorKind(err) {
	case KindPoolExhausted, KindTimeout, KindIO, KindConnect:
		return true
	}
	return false
}
