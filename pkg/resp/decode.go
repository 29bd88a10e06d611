package resp

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Protocol limits. They bound memory for a single reply and reject
// garbled streams early; RESP has no resynchronization point after a
// structural error, so a hard failure is the only safe outcome.
const (
	// MaxDepth limits aggregate nesting.
	MaxDepth = 32

	// DefaultMaxBulkLen is the protocol cap on a single bulk string
	// (512MB, matching the server-side limit).
	DefaultMaxBulkLen = 512 << 20

	// DefaultMaxArrayLen limits the element count of one aggregate.
	DefaultMaxArrayLen = 1 << 20

	// maxLineLen limits a single CRLF-terminated header line.
	maxLineLen = 64 << 10
)

var (
	// ErrProtocol reports malformed or unexpected bytes. The stream is
	// unrecoverable; decoding cannot continue on the same connection.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded reports a frame exceeding a protocol limit.
	// Like ErrProtocol it is fatal to the stream.
	ErrLimitExceeded = errors.New("resp: limit exceeded")

	// ErrIncomplete reports that the buffered bytes do not yet form a
	// complete reply. Feed more bytes and call Next again; the decode
	// cursor is unchanged.
	ErrIncomplete = errors.New("resp: incomplete reply")
)

// Decoder is a resumable RESP reply parser. It owns a byte buffer that
// callers append to with Feed as data arrives; Next consumes exactly
// one complete reply per call. Any structural error poisons the
// Decoder permanently.
//
// Decoder is not safe for concurrent use; a connection owns exactly
// one.
type Decoder struct {
	// MaxBulkLen and MaxArrayLen may be lowered before first use to
	// bound per-reply memory below the protocol defaults.
	MaxBulkLen  int64
	MaxArrayLen int64

	buf   []byte
	pos   int
	fatal error
}

// NewDecoder returns a Decoder with default limits.
func NewDecoder() *Decoder {
	return &Decoder{
		MaxBulkLen:  DefaultMaxBulkLen,
		MaxArrayLen: DefaultMaxArrayLen,
	}
}

// Feed appends raw bytes from the transport to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of unconsumed bytes.
func (d *Decoder) Buffered() int { return len(d.buf) - d.pos }

// Reset discards all buffered bytes and clears a fatal state. Only
// meaningful for a fresh connection; never reuse a poisoned Decoder on
// the same stream.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.pos = 0
	d.fatal = nil
}

// Next decodes one complete reply from the buffer. It returns
// ErrIncomplete when more bytes are needed (the cursor is untouched),
// or a fatal ErrProtocol/ErrLimitExceeded-wrapped error after which
// every subsequent call fails.
func (d *Decoder) Next() (Value, error) {
	if d.fatal != nil {
		return Value{}, d.fatal
	}

	v, n, err := d.decode(d.buf[d.pos:], 1)
	if err != nil {
		if errors.Is(err, ErrIncomplete) {
			return Value{}, ErrIncomplete
		}
		d.fatal = err
		return Value{}, err
	}
	d.pos += n

	// Reclaim the buffer once everything is consumed, or shift the
	// tail forward when the dead prefix grows past 4KB.
	if d.pos == len(d.buf) {
		d.buf = d.buf[:0]
		d.pos = 0
	} else if d.pos > 4096 {
		d.buf = append(d.buf[:0], d.buf[d.pos:]...)
		d.pos = 0
	}
	return v, nil
}

// decode parses one value from b, returning the value and the number
// of bytes consumed.
func (d *Decoder) decode(b []byte, depth int) (Value, int, error) {
	line, n, err := splitLine(b)
	if err != nil {
		return Value{}, 0, err
	}
	if len(line) == 0 {
		return Value{}, 0, fmt.Errorf("%w: empty header line", ErrProtocol)
	}

	t := Type(line[0])
	rest := line[1:]

	switch t {
	case TypeSimpleString, TypeError, TypeBigNumber:
		return Value{Type: t, Str: clone(rest)}, n, nil

	case TypeInteger:
		i, err := parseInt(rest)
		if err != nil {
			return Value{}, 0, fmt.Errorf("%w: invalid integer %q", ErrProtocol, rest)
		}
		return Value{Type: t, Int: i}, n, nil

	case TypeDouble:
		f, err := parseDouble(rest)
		if err != nil {
			return Value{}, 0, fmt.Errorf("%w: invalid double %q", ErrProtocol, rest)
		}
		return Value{Type: t, Float: f}, n, nil

	case TypeBoolean:
		if len(rest) != 1 || (rest[0] != 't' && rest[0] != 'f') {
			return Value{}, 0, fmt.Errorf("%w: invalid boolean %q", ErrProtocol, rest)
		}
		return Value{Type: t, Bool: rest[0] == 't'}, n, nil

	case TypeNull:
		if len(rest) != 0 {
			return Value{}, 0, fmt.Errorf("%w: invalid null", ErrProtocol)
		}
		return Value{Type: t, Null: true}, n, nil

	case TypeBulkString, TypeVerbatimString, TypeBlobError:
		return d.decodeBlob(b, t, rest, n)

	case TypeArray, TypeSet, TypePush, TypeMap:
		return d.decodeAggregate(b, t, rest, n, depth)

	default:
		return Value{}, 0, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, line[0])
	}
}

func (d *Decoder) decodeBlob(b []byte, t Type, header []byte, n int) (Value, int, error) {
	size, err := parseInt(header)
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: invalid bulk length %q", ErrProtocol, header)
	}
	if size == -1 {
		return Value{Type: t, Null: true}, n, nil
	}
	if size < 0 {
		return Value{}, 0, fmt.Errorf("%w: negative bulk length %d", ErrProtocol, size)
	}
	if size > d.MaxBulkLen {
		return Value{}, 0, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, size, d.MaxBulkLen)
	}

	total := n + int(size) + 2
	if len(b) < total {
		return Value{}, 0, ErrIncomplete
	}
	if b[total-2] != '\r' || b[total-1] != '\n' {
		return Value{}, 0, fmt.Errorf("%w: bulk string missing terminator", ErrProtocol)
	}
	return Value{Type: t, Str: clone(b[n : n+int(size)])}, total, nil
}

func (d *Decoder) decodeAggregate(b []byte, t Type, header []byte, n, depth int) (Value, int, error) {
	count, err := parseInt(header)
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: invalid aggregate length %q", ErrProtocol, header)
	}
	if count == -1 {
		return Value{Type: t, Null: true}, n, nil
	}
	if count < 0 {
		return Value{}, 0, fmt.Errorf("%w: negative aggregate length %d", ErrProtocol, count)
	}
	if depth >= MaxDepth {
		return Value{}, 0, fmt.Errorf("%w: nesting depth exceeds %d", ErrLimitExceeded, MaxDepth)
	}
	if count > d.MaxArrayLen {
		return Value{}, 0, fmt.Errorf("%w: aggregate length %d exceeds limit %d", ErrLimitExceeded, count, d.MaxArrayLen)
	}

	// Maps carry key/value pairs; they are stored flattened.
	if t == TypeMap {
		count *= 2
	}

	elems := make([]Value, 0, count)
	consumed := n
	for i := int64(0); i < count; i++ {
		v, cn, err := d.decode(b[consumed:], depth+1)
		if err != nil {
			return Value{}, 0, err
		}
		elems = append(elems, v)
		consumed += cn
	}
	return Value{Type: t, Elems: elems}, consumed, nil
}

// splitLine returns the first CRLF-terminated line of b without its
// terminator and the number of bytes consumed including the CRLF.
func splitLine(b []byte) ([]byte, int, error) {
	i := bytes.Index(b, crlf)
	if i < 0 {
		if len(b) > maxLineLen {
			return nil, 0, fmt.Errorf("%w: header line exceeds %d bytes", ErrLimitExceeded, maxLineLen)
		}
		return nil, 0, ErrIncomplete
	}
	if i > maxLineLen {
		return nil, 0, fmt.Errorf("%w: header line exceeds %d bytes", ErrLimitExceeded, maxLineLen)
	}
	return b[:i], i + 2, nil
}

func parseInt(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}

func parseDouble(b []byte) (float64, error) {
	switch string(b) {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(string(b), 64)
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
