package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// JSONFormatter renders replies as plain JSON values. Bulk strings
// become JSON strings, nils become null, maps become objects when
// every key is a string and pair arrays otherwise.
type JSONFormatter struct{}

// Format writes the reply as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, v resp.Value) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toJSON(v))
}

func toJSON(v resp.Value) any {
	if v.IsNil() {
		return nil
	}
	switch v.Type {
	case resp.TypeSimpleString, resp.TypeBulkString, resp.TypeVerbatimString, resp.TypeBigNumber:
		return string(v.Str)
	case resp.TypeError, resp.TypeBlobError:
		return map[string]any{"error": string(v.Str)}
	case resp.TypeInteger:
		return v.Int
	case resp.TypeDouble:
		return v.Float
	case resp.TypeBoolean:
		return v.Bool
	case resp.TypeMap:
		return mapToJSON(v.Elems)
	case resp.TypeArray, resp.TypeSet, resp.TypePush:
		out := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			out[i] = toJSON(e)
		}
		return out
	default:
		return nil
	}
}

func mapToJSON(elems []resp.Value) any {
	obj := make(map[string]any, len(elems)/2)
	for i := 0; i+1 < len(elems); i += 2 {
		k := elems[i]
		if k.Null || !isStringType(k.Type) {
			return pairsToJSON(elems)
		}
		obj[string(k.Str)] = toJSON(elems[i+1])
	}
	return obj
}

func pairsToJSON(elems []resp.Value) []any {
	out := make([]any, 0, len(elems)/2)
	for i := 0; i+1 < len(elems); i += 2 {
		out = append(out, []any{toJSON(elems[i]), toJSON(elems[i+1])})
	}
	return out
}

func isStringType(t resp.Type) bool {
	return t == resp.TypeSimpleString || t == resp.TypeBulkString || t == resp.TypeVerbatimString
}
