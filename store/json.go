package store

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Attribute documents and object elements are JSON, but a plain marshal
// would collapse 1.0 to "1" and lose the float/int distinction on reload.
// appendJSONValue therefore formats floats with a forced decimal marker,
// and decodeJSONNumber maps literals back by inspecting the lexical form.

func appendJSONValue(dst []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(dst, "null"...), nil
	case bool:
		if val {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil
	case string:
		quoted, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return append(dst, quoted...), nil
	case int:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int8:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int16:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int32:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(dst, val, 10), nil
	case uint:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint8:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint16:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint32:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint64:
		return strconv.AppendUint(dst, val, 10), nil
	case float32:
		return appendJSONFloat(dst, float64(val))
	case float64:
		return appendJSONFloat(dst, val)
	case []any:
		dst = append(dst, '[')
		for i, elem := range val {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			dst, err = appendJSONValue(dst, elem)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case []string:
		dst = append(dst, '[')
		for i, elem := range val {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			dst, err = appendJSONValue(dst, elem)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dst = append(dst, '{')
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			quoted, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			dst = append(dst, quoted...)
			dst = append(dst, ':')
			dst, err = appendJSONValue(dst, val[k])
			if err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	default:
		return nil, fmt.Errorf("cannot encode %T as a JSON attribute value", v)
	}
}

func appendJSONFloat(dst []byte, v float64) ([]byte, error) {
	// JSON has no literal for NaN or the infinities; writing one would
	// leave a document the reader cannot parse at all.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("cannot encode non-finite float %v as a JSON attribute value", v)
	}

	formatted := strconv.FormatFloat(v, 'g', -1, 64)
	dst = append(dst, formatted...)
	// Force a decimal marker so the literal reads back as a float.
	if !strings.ContainsAny(formatted, ".eE") {
		dst = append(dst, ".0"...)
	}

	return dst, nil
}

// decodeJSONValue parses a JSON document preserving the float/int
// distinction of number literals.
func decodeJSONValue(data []byte) (any, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return normalizeJSONNumbers(raw), nil
}

func normalizeJSONNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			val[k] = normalizeJSONNumbers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = normalizeJSONNumbers(elem)
		}
		return val
	case json.Number:
		return decodeJSONNumber(val)
	default:
		return v
	}
}

func decodeJSONNumber(num json.Number) any {
	literal := num.String()
	if strings.ContainsAny(literal, ".eE") {
		if f, err := num.Float64(); err == nil {
			return f
		}
	}
	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}

	return literal
}
