package repl

import (
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain words", "SET key value", []string{"SET", "key", "value"}},
		{"extra whitespace", "  GET \t key  ", []string{"GET", "key"}},
		{"double quoted", `SET key "hello world"`, []string{"SET", "key", "hello world"}},
		{"double quote escapes", `ECHO "a\nb\t\"c\\"`, []string{"ECHO", "a\nb\t\"c\\"}},
		{"hex escape", `ECHO "\x41\x6a"`, []string{"ECHO", "Aj"}},
		{"single quoted literal", `ECHO 'a\nb'`, []string{"ECHO", `a\nb`}},
		{"single quote escape", `ECHO 'it\'s'`, []string{"ECHO", "it's"}},
		{"adjacent quoted and bare", `SET k "a"b`, []string{"SET", "k", "ab"}},
		{"empty quoted arg", `SET k ""`, []string{"SET", "k", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitArgs(tt.in)
			if err != nil {
				t.Fatalf("SplitArgs(%q): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty line", ""},
		{"only spaces", "   "},
		{"unterminated double", `GET "key`},
		{"unterminated single", `GET 'key`},
		{"truncated hex", `ECHO "\x4`},
		{"bad hex", `ECHO "\xzz"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SplitArgs(tt.in); err == nil {
				t.Errorf("SplitArgs(%q) should fail", tt.in)
			}
		})
	}
}

func TestCompleter(t *testing.T) {
	c := NewCompleter()

	tests := []struct {
		name string
		line string
		want []string
	}{
		{"uppercase prefix", "IN", []string{"INCR", "INCRBY", "INFO"}},
		{"lowercase prefix", "se", []string{"select", "set"}},
		{"no match", "ZADD", nil},
		{"past command word", "GET ke", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Complete(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}

	if got := c.Complete(""); len(got) == 0 {
		t.Error("empty prefix should list all commands")
	}
}

func TestHistoryAddAndTrim(t *testing.T) {
	h := NewHistory("")
	h.maxSize = 3

	h.Add("a")
	h.Add("a")
	h.Add("b")
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("consecutive duplicate kept: %v", got)
	}

	h.Add("c")
	h.Add("d")
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("oldest entry not trimmed: %v", got)
	}
}

func TestHistorySaveLoad(t *testing.T) {
	file := t.TempDir() + "/sub/history"

	h := NewHistory(file)
	h.Add("SET k v")
	h.Add("GET k")
	if err := h.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewHistory(file)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), h.Entries()) {
		t.Errorf("round trip = %v, want %v", loaded.Entries(), h.Entries())
	}
}

func TestHistoryMissingFile(t *testing.T) {
	h := NewHistory(t.TempDir() + "/nope")
	if err := h.Load(); err != nil {
		t.Errorf("missing history file should not error: %v", err)
	}

	none := NewHistory("")
	if err := none.Load(); err != nil {
		t.Errorf("disabled history Load: %v", err)
	}
	if err := none.Save(); err != nil {
		t.Errorf("disabled history Save: %v", err)
	}
}
