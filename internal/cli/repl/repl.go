package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/yndnr/redwire-go/internal/cli/output"
	"github.com/yndnr/redwire-go/pkg/resp"
)

// Executor runs one command vector and returns the server reply.
type Executor func(ctx context.Context, args []string) (resp.Value, error)

// REPL is the interactive loop.
type REPL struct {
	prompt    string
	exec      Executor
	formatter output.Formatter
	history   *History
	out       io.Writer
}

// Option customizes a REPL.
type Option func(*REPL)

// WithPrompt overrides the default prompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) { r.prompt = prompt }
}

// WithHistoryFile enables persistent history at the given path.
func WithHistoryFile(path string) Option {
	return func(r *REPL) { r.history = NewHistory(path) }
}

// WithOutput redirects reply output, mainly for tests.
func WithOutput(w io.Writer) Option {
	return func(r *REPL) { r.out = w }
}

// New creates a REPL that prints replies with formatter and evaluates
// commands through exec.
func New(exec Executor, formatter output.Formatter, opts ...Option) *REPL {
	r := &REPL{
		prompt:    "redwire> ",
		exec:      exec,
		formatter: formatter,
		history:   NewHistory(""),
		out:       os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads commands until EOF, "exit" or "quit". History is saved on
// the way out.
func (r *REPL) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(NewCompleter().Complete)

	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.out, "history: %v\n", err)
	}
	for _, entry := range r.history.Entries() {
		line.AppendHistory(entry)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.out, "history: %v\n", err)
		}
	}()

	for {
		input, err := line.Prompt(r.prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		r.history.Add(input)

		args, err := SplitArgs(input)
		if err != nil {
			fmt.Fprintf(r.out, "(error) %v\n", err)
			continue
		}

		switch strings.ToLower(args[0]) {
		case "exit", "quit":
			return nil
		case "help":
			r.printHelp()
			continue
		}

		r.eval(ctx, args)
	}
}

func (r *REPL) eval(ctx context.Context, args []string) {
	v, err := r.exec(ctx, args)
	if err != nil {
		fmt.Fprintf(r.out, "(error) %v\n", err)
		return
	}
	if err := r.formatter.Format(r.out, v); err != nil {
		fmt.Fprintf(r.out, "(error) %v\n", err)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "Any Redis command is sent verbatim, e.g. GET key or SET key value.")
	fmt.Fprintln(r.out, "Quoting follows redis-cli: \"..\" with escapes, '..' literal.")
	fmt.Fprintln(r.out, "exit or quit leaves the shell.")
}

// SplitArgs splits a command line redis-cli style. Double-quoted
// arguments understand \n, \r, \t, \\, \" and \xHH escapes;
// single-quoted arguments are literal except for \'.
func SplitArgs(line string) ([]string, error) {
	var args []string
	i := 0
	for i < len(line) {
		if line[i] == ' ' || line[i] == '\t' {
			i++
			continue
		}
		arg, next, err := scanArg(line, i)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		i = next
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}

func scanArg(line string, i int) (string, int, error) {
	var sb strings.Builder
	for i < len(line) && line[i] != ' ' && line[i] != '\t' {
		switch line[i] {
		case '"':
			next, err := scanDoubleQuoted(&sb, line, i+1)
			if err != nil {
				return "", 0, err
			}
			i = next
		case '\'':
			next, err := scanSingleQuoted(&sb, line, i+1)
			if err != nil {
				return "", 0, err
			}
			i = next
		default:
			sb.WriteByte(line[i])
			i++
		}
	}
	return sb.String(), i, nil
}

func scanDoubleQuoted(sb *strings.Builder, line string, i int) (int, error) {
	for i < len(line) {
		switch {
		case line[i] == '"':
			return i + 1, nil
		case line[i] == '\\' && i+1 < len(line):
			c, next, err := unescape(line, i+1)
			if err != nil {
				return 0, err
			}
			sb.WriteByte(c)
			i = next
		default:
			sb.WriteByte(line[i])
			i++
		}
	}
	return 0, errors.New("unterminated double quote")
}

func scanSingleQuoted(sb *strings.Builder, line string, i int) (int, error) {
	for i < len(line) {
		switch {
		case line[i] == '\'':
			return i + 1, nil
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '\'':
			sb.WriteByte('\'')
			i += 2
		default:
			sb.WriteByte(line[i])
			i++
		}
	}
	return 0, errors.New("unterminated single quote")
}

func unescape(line string, i int) (byte, int, error) {
	switch line[i] {
	case 'n':
		return '\n', i + 1, nil
	case 'r':
		return '\r', i + 1, nil
	case 't':
		return '\t', i + 1, nil
	case '\\':
		return '\\', i + 1, nil
	case '"':
		return '"', i + 1, nil
	case 'x':
		if i+2 >= len(line) {
			return 0, 0, errors.New("truncated \\x escape")
		}
		hi, ok1 := hexDigit(line[i+1])
		lo, ok2 := hexDigit(line[i+2])
		if !ok1 || !ok2 {
			return 0, 0, fmt.Errorf("bad \\x escape %q", line[i:i+3])
		}
		return hi<<4 | lo, i + 3, nil
	default:
		return line[i], i + 1, nil
	}
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
