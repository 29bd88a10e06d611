package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// Format represents the output format.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
)

// Formatter renders a RESP reply to a writer.
type Formatter interface {
	Format(w io.Writer, v resp.Value) error
}

// NewFormatter creates a formatter for the given format. Unknown
// formats fall back to raw.
func NewFormatter(format Format) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{}
	}
	return &RawFormatter{}
}

// RawFormatter renders replies in the redis-cli style.
type RawFormatter struct{}

// Format writes the reply followed by a newline.
func (f *RawFormatter) Format(w io.Writer, v resp.Value) error {
	var sb strings.Builder
	renderValue(&sb, v, "", "")
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

// renderValue appends one value. prefix carries the aggregate index
// label of the first line, indent the continuation indentation for
// nested aggregates.
func renderValue(sb *strings.Builder, v resp.Value, prefix, indent string) {
	sb.WriteString(prefix)

	if v.IsNil() {
		sb.WriteString("(nil)")
		return
	}

	switch v.Type {
	case resp.TypeSimpleString:
		sb.Write(v.Str)
	case resp.TypeError, resp.TypeBlobError:
		sb.WriteString("(error) ")
		sb.Write(v.Str)
	case resp.TypeInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case resp.TypeBulkString:
		sb.WriteString(strconv.Quote(string(v.Str)))
	case resp.TypeVerbatimString:
		sb.Write(v.Str)
	case resp.TypeBigNumber:
		sb.WriteString("(big number) ")
		sb.Write(v.Str)
	case resp.TypeDouble:
		sb.WriteString("(double) ")
		sb.WriteString(v.Text())
	case resp.TypeBoolean:
		if v.Bool {
			sb.WriteString("(true)")
		} else {
			sb.WriteString("(false)")
		}
	case resp.TypeMap:
		renderMap(sb, v.Elems, indent)
	case resp.TypeArray, resp.TypeSet, resp.TypePush:
		renderAggregate(sb, v.Elems, indent)
	default:
		fmt.Fprintf(sb, "(unknown type %q)", byte(v.Type))
	}
}

func renderAggregate(sb *strings.Builder, elems []resp.Value, indent string) {
	if len(elems) == 0 {
		sb.WriteString("(empty aggregate)")
		return
	}
	width := len(strconv.Itoa(len(elems)))
	for i, e := range elems {
		if i > 0 {
			sb.WriteByte('\n')
			sb.WriteString(indent)
		}
		label := fmt.Sprintf("%*d) ", width, i+1)
		renderValue(sb, e, label, indent+strings.Repeat(" ", len(label)))
	}
}

// renderMap renders flattened key/value pairs, one pair per line.
func renderMap(sb *strings.Builder, elems []resp.Value, indent string) {
	if len(elems) == 0 {
		sb.WriteString("(empty map)")
		return
	}
	pairs := len(elems) / 2
	width := len(strconv.Itoa(pairs))
	for i := 0; i+1 < len(elems); i += 2 {
		if i > 0 {
			sb.WriteByte('\n')
			sb.WriteString(indent)
		}
		label := fmt.Sprintf("%*d# ", width, i/2+1)
		pad := indent + strings.Repeat(" ", len(label))
		renderValue(sb, elems[i], label, pad)
		sb.WriteString(" => ")
		renderValue(sb, elems[i+1], "", pad)
	}
}
