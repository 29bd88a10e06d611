package resp

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func args(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestAppendCommand(t *testing.T) {
	tests := []struct {
		name string
		args [][]byte
		want string
	}{
		{
			name: "PING",
			args: args("PING"),
			want: "*1\r\n$4\r\nPING\r\n",
		},
		{
			name: "SET foo bar",
			args: args("SET", "foo", "bar"),
			want: "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
		},
		{
			name: "empty argument",
			args: args("SET", "k", ""),
			want: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n",
		},
		{
			name: "binary safe argument with CRLF and NUL",
			args: [][]byte{[]byte("SET"), []byte("k"), {0x00, '\r', '\n', 0xff}},
			want: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$4\r\n\x00\r\n\xff\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AppendCommand(nil, tt.args)
			if err != nil {
				t.Fatalf("AppendCommand() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("AppendCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppendCommand_Errors(t *testing.T) {
	if _, err := AppendCommand(nil, nil); err == nil {
		t.Error("empty command should error")
	}

	huge := make([][]byte, MaxCommandArgs+1)
	for i := range huge {
		huge[i] = []byte("x")
	}
	if _, err := AppendCommand(nil, huge); !errors.Is(err, ErrTooManyArgs) {
		t.Errorf("error = %v, want ErrTooManyArgs", err)
	}
}

func TestAppendCommand_AppendsToPrefix(t *testing.T) {
	prefix := []byte("xx")
	got, err := AppendCommand(prefix, args("PING"))
	if err != nil {
		t.Fatalf("AppendCommand() error = %v", err)
	}
	if !bytes.HasPrefix(got, []byte("xx*1\r\n")) {
		t.Errorf("prefix not preserved: %q", got)
	}
}

func TestAppendValue(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"simple string", SimpleString("OK"), "+OK\r\n"},
		{"error", Error("ERR boom"), "-ERR boom\r\n"},
		{"integer", Integer(-42), ":-42\r\n"},
		{"bulk", BulkString([]byte("hello")), "$5\r\nhello\r\n"},
		{"empty bulk", BulkString([]byte{}), "$0\r\n\r\n"},
		{"nil bulk", NilBulk(), "$-1\r\n"},
		{"empty array", Array(), "*0\r\n"},
		{"nil array", NilArray(), "*-1\r\n"},
		{
			"nested array",
			Array(Integer(1), Array(SimpleString("a"))),
			"*2\r\n:1\r\n*1\r\n+a\r\n",
		},
		{"null", Null(), "_\r\n"},
		{"double", Double(1.5), ",1.5\r\n"},
		{"boolean true", Boolean(true), "#t\r\n"},
		{"boolean false", Boolean(false), "#f\r\n"},
		{
			"map",
			Value{Type: TypeMap, Elems: []Value{BulkString([]byte("k")), Integer(1)}},
			"%1\r\n$1\r\nk\r\n:1\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendValue(nil, tt.v)
			if string(got) != tt.want {
				t.Errorf("AppendValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValue_ErrorCode(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"WRONGTYPE Operation against a key holding the wrong kind of value", "WRONGTYPE"},
		{"ERR unknown command", "ERR"},
		{"NOAUTH", "NOAUTH"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Error(tt.msg).ErrorCode(); got != tt.want {
			t.Errorf("ErrorCode(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}

	if got := SimpleString("OK").ErrorCode(); got != "" {
		t.Errorf("ErrorCode on non-error = %q, want empty", got)
	}
}

func TestValue_Text(t *testing.T) {
	if got := Integer(7).Text(); got != "7" {
		t.Errorf("Integer.Text() = %q", got)
	}
	if got := BulkString([]byte("v")).Text(); got != "v" {
		t.Errorf("BulkString.Text() = %q", got)
	}
	if got := NilBulk().Text(); got != "" {
		t.Errorf("NilBulk.Text() = %q, want empty", got)
	}
	if got := Boolean(true).Text(); got != "true" {
		t.Errorf("Boolean.Text() = %q", got)
	}
	if got := Double(0.5).Text(); !strings.HasPrefix(got, "0.5") {
		t.Errorf("Double.Text() = %q", got)
	}
}
