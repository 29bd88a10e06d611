package resp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// MaxCommandArgs bounds the number of arguments in a single command.
// Redis itself accepts more, but nothing a storage driver sends comes
// close; pathological inputs are rejected before any bytes are written.
const MaxCommandArgs = 64 * 1024

// ErrTooManyArgs is returned when a command exceeds MaxCommandArgs.
var ErrTooManyArgs = errors.New("resp: too many command arguments")

var crlf = []byte("\r\n")

// AppendCommand appends the wire frame for a command to dst and
// returns the extended buffer. Commands are always encoded as an array
// of bulk strings; argument bytes are taken verbatim, so embedded CR,
// LF and NUL are safe.
func AppendCommand(dst []byte, args [][]byte) ([]byte, error) {
	if len(args) == 0 {
		return dst, errors.New("resp: empty command")
	}
	if len(args) > MaxCommandArgs {
		return dst, fmt.Errorf("%w: %d", ErrTooManyArgs, len(args))
	}

	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, crlf...)
	for _, arg := range args {
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, arg...)
		dst = append(dst, crlf...)
	}
	return dst, nil
}

// AppendValue appends the wire frame for a reply value to dst. It is
// the exact inverse of the decoder and exists for tests and in-process
// fake servers; a client never sends reply frames.
func AppendValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.Str...)
		return append(dst, crlf...)
	case TypeError:
		dst = append(dst, '-')
		dst = append(dst, v.Str...)
		return append(dst, crlf...)
	case TypeInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		return append(dst, crlf...)
	case TypeBulkString, TypeVerbatimString, TypeBlobError:
		dst = append(dst, byte(v.Type))
		if v.Null {
			dst = append(dst, '-', '1')
			return append(dst, crlf...)
		}
		dst = strconv.AppendInt(dst, int64(len(v.Str)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, v.Str...)
		return append(dst, crlf...)
	case TypeArray, TypeSet, TypePush:
		dst = append(dst, byte(v.Type))
		if v.Null {
			dst = append(dst, '-', '1')
			return append(dst, crlf...)
		}
		dst = strconv.AppendInt(dst, int64(len(v.Elems)), 10)
		dst = append(dst, crlf...)
		for _, e := range v.Elems {
			dst = AppendValue(dst, e)
		}
		return dst
	case TypeMap:
		dst = append(dst, '%')
		if v.Null {
			dst = append(dst, '-', '1')
			return append(dst, crlf...)
		}
		dst = strconv.AppendInt(dst, int64(len(v.Elems)/2), 10)
		dst = append(dst, crlf...)
		for _, e := range v.Elems {
			dst = AppendValue(dst, e)
		}
		return dst
	case TypeNull:
		dst = append(dst, '_')
		return append(dst, crlf...)
	case TypeDouble:
		dst = append(dst, ',')
		switch {
		case math.IsInf(v.Float, 1):
			dst = append(dst, "inf"...)
		case math.IsInf(v.Float, -1):
			dst = append(dst, "-inf"...)
		default:
			dst = strconv.AppendFloat(dst, v.Float, 'g', -1, 64)
		}
		return append(dst, crlf...)
	case TypeBoolean:
		dst = append(dst, '#')
		if v.Bool {
			dst = append(dst, 't')
		} else {
			dst = append(dst, 'f')
		}
		return append(dst, crlf...)
	case TypeBigNumber:
		dst = append(dst, '(')
		dst = append(dst, v.Str...)
		return append(dst, crlf...)
	default:
		// Unknown types encode as a nil bulk so tests fail loudly on
		// shape rather than panicking mid-append.
		dst = append(dst, "$-1"...)
		return append(dst, crlf...)
	}
}
