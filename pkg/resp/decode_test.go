package resp

import (
	"errors"
	"strings"
	"testing"
)

func decodeWhole(t *testing.T, wire string) (Value, error) {
	t.Helper()
	d := NewDecoder()
	d.Feed([]byte(wire))
	return d.Next()
}

func TestDecoder_Scalars(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want Value
	}{
		{"simple string", "+OK\r\n", SimpleString("OK")},
		{"empty simple string", "+\r\n", SimpleString("")},
		{"error", "-ERR value is not an integer or out of range\r\n", Error("ERR value is not an integer or out of range")},
		{"integer", ":1000\r\n", Integer(1000)},
		{"negative integer", ":-1\r\n", Integer(-1)},
		{"bulk", "$6\r\nfoobar\r\n", BulkString([]byte("foobar"))},
		{"empty bulk", "$0\r\n\r\n", BulkString([]byte{})},
		{"nil bulk", "$-1\r\n", NilBulk()},
		{"bulk with CRLF payload", "$4\r\na\r\nb\r\n", BulkString([]byte("a\r\nb"))},
		{"null", "_\r\n", Null()},
		{"boolean true", "#t\r\n", Boolean(true)},
		{"boolean false", "#f\r\n", Boolean(false)},
		{"double", ",3.14\r\n", Double(3.14)},
		{"big number", "(3492890328409238509324850943850943825024385\r\n", Value{Type: TypeBigNumber, Str: []byte("3492890328409238509324850943850943825024385")}},
		{"verbatim string", "=15\r\ntxt:Some string\r\n", Value{Type: TypeVerbatimString, Str: []byte("txt:Some string")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeWhole(t, tt.wire)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("Next() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecoder_Aggregates(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want Value
	}{
		{"empty array", "*0\r\n", Array()},
		{"nil array", "*-1\r\n", NilArray()},
		{
			"array of bulks",
			"*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
			Array(BulkString([]byte("foo")), BulkString([]byte("bar"))),
		},
		{
			"mixed array with nil element",
			"*3\r\n:1\r\n$-1\r\n+OK\r\n",
			Array(Integer(1), NilBulk(), SimpleString("OK")),
		},
		{
			"nested arrays",
			"*2\r\n*2\r\n:1\r\n:2\r\n*1\r\n+x\r\n",
			Array(Array(Integer(1), Integer(2)), Array(SimpleString("x"))),
		},
		{
			"set",
			"~2\r\n+a\r\n+b\r\n",
			Value{Type: TypeSet, Elems: []Value{SimpleString("a"), SimpleString("b")}},
		},
		{
			"map flattened to pairs",
			"%2\r\n+first\r\n:1\r\n+second\r\n:2\r\n",
			Value{Type: TypeMap, Elems: []Value{
				SimpleString("first"), Integer(1),
				SimpleString("second"), Integer(2),
			}},
		},
		{
			"push",
			">2\r\n+pubsub\r\n+message\r\n",
			Value{Type: TypePush, Elems: []Value{SimpleString("pubsub"), SimpleString("message")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeWhole(t, tt.wire)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("Next() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Feeding one byte at a time must produce the same value as decoding
// the whole frame, with ErrIncomplete at every intermediate step.
func TestDecoder_ByteAtATime(t *testing.T) {
	wires := []string{
		"+OK\r\n",
		":12345\r\n",
		"$6\r\nfoobar\r\n",
		"$-1\r\n",
		"*2\r\n*2\r\n:1\r\n$2\r\nab\r\n$-1\r\n",
		"%1\r\n$1\r\nk\r\n*2\r\n:1\r\n:2\r\n",
	}

	for _, wire := range wires {
		t.Run(wire, func(t *testing.T) {
			want, err := decodeWhole(t, wire)
			if err != nil {
				t.Fatalf("whole decode error = %v", err)
			}

			d := NewDecoder()
			for i := 0; i < len(wire)-1; i++ {
				d.Feed([]byte{wire[i]})
				if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
					t.Fatalf("after %d bytes: error = %v, want ErrIncomplete", i+1, err)
				}
			}
			d.Feed([]byte{wire[len(wire)-1]})
			got, err := d.Next()
			if err != nil {
				t.Fatalf("final Next() error = %v", err)
			}
			if !Equal(got, want) {
				t.Errorf("chunked decode = %+v, want %+v", got, want)
			}
			if d.Buffered() != 0 {
				t.Errorf("Buffered() = %d, want 0", d.Buffered())
			}
		})
	}
}

func TestDecoder_MultipleReplies(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("+OK\r\n:1\r\n$3\r\nabc\r\n"))

	want := []Value{SimpleString("OK"), Integer(1), BulkString([]byte("abc"))}
	for i, w := range want {
		got, err := d.Next()
		if err != nil {
			t.Fatalf("reply %d: error = %v", i, err)
		}
		if !Equal(got, w) {
			t.Errorf("reply %d = %+v, want %+v", i, got, w)
		}
	}
	if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
		t.Errorf("drained decoder error = %v, want ErrIncomplete", err)
	}
}

func TestDecoder_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want error
	}{
		{"unexpected type byte", "?what\r\n", ErrProtocol},
		{"malformed integer", ":12a\r\n", ErrProtocol},
		{"malformed bulk length", "$abc\r\n", ErrProtocol},
		{"negative bulk length", "$-2\r\n", ErrProtocol},
		{"bulk missing terminator", "$3\r\nabcXY", ErrProtocol},
		{"malformed array length", "*x\r\n", ErrProtocol},
		{"invalid boolean", "#x\r\n", ErrProtocol},
		{"invalid null payload", "_x\r\n", ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			d.Feed([]byte(tt.wire))
			_, err := d.Next()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Next() error = %v, want %v", err, tt.want)
			}

			// A structural error poisons the decoder.
			d.Feed([]byte("+OK\r\n"))
			if _, err := d.Next(); !errors.Is(err, tt.want) {
				t.Errorf("poisoned Next() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecoder_Limits(t *testing.T) {
	t.Run("bulk length", func(t *testing.T) {
		d := NewDecoder()
		d.MaxBulkLen = 8
		d.Feed([]byte("$9\r\n123456789\r\n"))
		if _, err := d.Next(); !errors.Is(err, ErrLimitExceeded) {
			t.Errorf("error = %v, want ErrLimitExceeded", err)
		}
	})

	t.Run("aggregate length", func(t *testing.T) {
		d := NewDecoder()
		d.MaxArrayLen = 2
		d.Feed([]byte("*3\r\n:1\r\n:2\r\n:3\r\n"))
		if _, err := d.Next(); !errors.Is(err, ErrLimitExceeded) {
			t.Errorf("error = %v, want ErrLimitExceeded", err)
		}
	})

	t.Run("nesting depth", func(t *testing.T) {
		wire := strings.Repeat("*1\r\n", MaxDepth+1) + ":1\r\n"
		d := NewDecoder()
		d.Feed([]byte(wire))
		if _, err := d.Next(); !errors.Is(err, ErrLimitExceeded) {
			t.Errorf("error = %v, want ErrLimitExceeded", err)
		}
	})

	t.Run("depth within limit", func(t *testing.T) {
		wire := strings.Repeat("*1\r\n", MaxDepth-1) + ":1\r\n"
		d := NewDecoder()
		d.Feed([]byte(wire))
		if _, err := d.Next(); err != nil {
			t.Errorf("error = %v, want nil", err)
		}
	})
}

// Round-trip: every encodable value decodes back to itself.
func TestRoundTrip(t *testing.T) {
	values := []Value{
		SimpleString("OK"),
		Error("WRONGTYPE Operation against a key"),
		Integer(-9223372036854775808),
		BulkString([]byte("binary\x00\r\nsafe")),
		BulkString([]byte{}),
		NilBulk(),
		Array(),
		NilArray(),
		Array(Integer(1), NilBulk(), Array(SimpleString("deep"))),
		Null(),
		Boolean(true),
		Double(2.25),
		Value{Type: TypeMap, Elems: []Value{BulkString([]byte("k")), Integer(1)}},
		Value{Type: TypeSet, Elems: []Value{SimpleString("a")}},
	}

	for _, v := range values {
		wire := AppendValue(nil, v)
		d := NewDecoder()
		d.Feed(wire)
		got, err := d.Next()
		if err != nil {
			t.Errorf("%s: decode error = %v", wire, err)
			continue
		}
		if !Equal(got, v) {
			t.Errorf("round trip %q: got %+v, want %+v", wire, got, v)
		}
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("?bad\r\n"))
	if _, err := d.Next(); err == nil {
		t.Fatal("expected protocol error")
	}

	d.Reset()
	d.Feed([]byte("+OK\r\n"))
	v, err := d.Next()
	if err != nil {
		t.Fatalf("Next() after Reset error = %v", err)
	}
	if !Equal(v, SimpleString("OK")) {
		t.Errorf("Next() = %+v", v)
	}
}
