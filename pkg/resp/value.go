package resp

import (
	"strconv"
	"strings"
)

// Type identifies a RESP reply type by its wire prefix byte.
type Type byte

// RESP2 reply types.
const (
	TypeSimpleString Type = '+'
	TypeError        Type = '-'
	TypeInteger      Type = ':'
	TypeBulkString   Type = '$'
	TypeArray        Type = '*'
)

// RESP3 reply types.
const (
	TypeNull           Type = '_'
	TypeDouble         Type = ','
	TypeBoolean        Type = '#'
	TypeBlobError      Type = '!'
	TypeVerbatimString Type = '='
	TypeBigNumber      Type = '('
	TypeMap            Type = '%'
	TypeSet            Type = '~'
	TypePush           Type = '>'
)

// String returns a human-readable name for the type.
func (t Type) String() string {
	switch t {
	case TypeSimpleString:
		return "simple-string"
	case TypeError:
		return "error"
	case TypeInteger:
		return "integer"
	case TypeBulkString:
		return "bulk-string"
	case TypeArray:
		return "array"
	case TypeNull:
		return "null"
	case TypeDouble:
		return "double"
	case TypeBoolean:
		return "boolean"
	case TypeBlobError:
		return "blob-error"
	case TypeVerbatimString:
		return "verbatim-string"
	case TypeBigNumber:
		return "big-number"
	case TypeMap:
		return "map"
	case TypeSet:
		return "set"
	case TypePush:
		return "push"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Value is a decoded RESP reply. Exactly one payload field is
// meaningful for a given Type:
//
//	SimpleString, Error, BulkString,
//	VerbatimString, BigNumber, BlobError  -> Str
//	Integer                               -> Int
//	Double                                -> Float
//	Boolean                               -> Bool
//	Array, Set, Push                      -> Elems
//	Map                                   -> Elems (key/value pairs, flattened)
//
// A nil bulk string ("$-1") and a nil array ("*-1") set Null with the
// corresponding Type; the RESP3 "_" reply sets Null with TypeNull.
// Null is distinct from an empty Str or empty Elems.
type Value struct {
	Type  Type
	Str   []byte
	Int   int64
	Float float64
	Bool  bool
	Elems []Value
	Null  bool
}

// IsNil reports whether the value is a nil bulk string, nil aggregate,
// or RESP3 null.
func (v Value) IsNil() bool { return v.Null }

// IsError reports whether the value is a server error reply.
func (v Value) IsError() bool { return v.Type == TypeError || v.Type == TypeBlobError }

// Text returns the payload as a string for string-carrying types and a
// formatted representation for scalar types. Aggregates return "".
func (v Value) Text() string {
	if v.Null {
		return ""
	}
	switch v.Type {
	case TypeSimpleString, TypeError, TypeBulkString, TypeVerbatimString, TypeBigNumber, TypeBlobError:
		return string(v.Str)
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeDouble:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case TypeBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// ErrorCode returns the leading code token of an error reply
// ("WRONGTYPE", "NOAUTH", "ERR", ...) and "" for non-error values.
func (v Value) ErrorCode() string {
	if !v.IsError() {
		return ""
	}
	msg := string(v.Str)
	if i := strings.IndexByte(msg, ' '); i > 0 {
		return msg[:i]
	}
	return msg
}

// Constructors used by tests and by fake servers; they mirror the
// decoder's output shapes exactly.

// SimpleString returns a "+" value.
func SimpleString(s string) Value { return Value{Type: TypeSimpleString, Str: []byte(s)} }

// Error returns a "-" value.
func Error(msg string) Value { return Value{Type: TypeError, Str: []byte(msg)} }

// Integer returns a ":" value.
func Integer(n int64) Value { return Value{Type: TypeInteger, Int: n} }

// BulkString returns a "$" value. A nil slice produces the nil bulk
// string, distinct from an empty one.
func BulkString(b []byte) Value {
	if b == nil {
		return Value{Type: TypeBulkString, Null: true}
	}
	return Value{Type: TypeBulkString, Str: b}
}

// NilBulk returns the "$-1" nil bulk string.
func NilBulk() Value { return Value{Type: TypeBulkString, Null: true} }

// Array returns a "*" value. A nil slice produces the nil array,
// distinct from an empty one.
func Array(elems ...Value) Value {
	if elems == nil {
		return Value{Type: TypeArray, Null: true}
	}
	return Value{Type: TypeArray, Elems: elems}
}

// NilArray returns the "*-1" nil array.
func NilArray() Value { return Value{Type: TypeArray, Null: true} }

// Null returns the RESP3 "_" null.
func Null() Value { return Value{Type: TypeNull, Null: true} }

// Double returns a "," value.
func Double(f float64) Value { return Value{Type: TypeDouble, Float: f} }

// Boolean returns a "#" value.
func Boolean(b bool) Value { return Value{Type: TypeBoolean, Bool: b} }

// Equal reports deep equality of two values, distinguishing nil from
// empty payloads.
func Equal(a, b Value) bool {
	if a.Type != b.Type || a.Null != b.Null {
		return false
	}
	if string(a.Str) != string(b.Str) {
		return false
	}
	if a.Int != b.Int || a.Float != b.Float || a.Bool != b.Bool {
		return false
	}
	if len(a.Elems) != len(b.Elems) {
		return false
	}
	for i := range a.Elems {
		if !Equal(a.Elems[i], b.Elems[i]) {
			return false
		}
	}
	return true
}
