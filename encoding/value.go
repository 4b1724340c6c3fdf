// Package encoding implements the metadata value codec.
//
// Metadata leaves that the store cannot hold natively (tuples, byte
// strings, empty containers, ragged rows) are encoded as a tagged
// surrogate: either an attribute document carrying an explicit kind tag,
// or a typed array node for bulk values. Decode dispatches on the tag
// alone, never on runtime shape guessing, so an unrecognized tag surfaces
// as a structured error naming the key path instead of a silent
// misreconstruction.
package encoding

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/ndarray"
)

// KindAttr is the attribute key recording the codec tag, both inside
// tagged surrogate documents and on array nodes holding encoded values.
const KindAttr = "_codec"

const (
	kindKey  = KindAttr
	valueKey = "_value"
)

// Tuple is the decoded form of a fixed, ordered heterogeneous sequence.
// It is a distinct type so decode can restore the original container kind
// instead of collapsing everything to a plain list.
type Tuple []any

// Encoded is the persistable form of one metadata leaf. Exactly one of
// Value and Array is populated: Value is an attribute representation the
// store's JSON documents can hold, Array is a typed array node for bulk
// payloads. A zero Kind marks a native value stored without a tag.
type Encoded struct {
	Kind  format.Kind
	Value any
	Array *ndarray.Array
}

// IsArray reports whether the leaf persists as an array node rather than
// an attribute.
func (e Encoded) IsArray() bool {
	return e.Array != nil
}

// Encode maps an in-memory value to its persistable form.
//
// Booleans, nil and numbers pass through untagged. Strings and date/time
// values store as text. Containers store as tagged surrogates that
// preserve the list/tuple distinction, including for empty containers.
// Byte strings store as UTF-8 text and decode to text, not bytes — the
// asymmetry is deliberate. A 2-D grid whose elements all parse as numeric
// is coerced to a dense float64 array; the narrowing is irreversible.
// Values outside the codec return ErrUnsupportedValue.
func Encode(v any) (Encoded, error) {
	return encode(v, true)
}

// Supports reports whether Encode can persist v. The writer consults it
// to turn unsupported leaves into an explicit logged skip.
func Supports(v any) bool {
	_, err := Encode(v)

	return err == nil
}

func encode(v any, topLevel bool) (Encoded, error) {
	switch val := v.(type) {
	case nil, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Encoded{Value: v}, nil
	case float32:
		return encodeFloat(v, float64(val))
	case float64:
		return encodeFloat(v, val)
	case string:
		return Encoded{Kind: format.KindString, Value: val}, nil
	case time.Time:
		return Encoded{Kind: format.KindString, Value: val.Format(time.RFC3339Nano)}, nil
	case []byte:
		return Encoded{Kind: format.KindBytes, Value: wrap(format.KindBytes, string(val))}, nil
	case []string:
		elems := make([]any, len(val))
		for i, s := range val {
			elems[i] = s
		}

		return Encoded{Kind: format.KindStringList, Value: wrap(format.KindStringList, elems)}, nil
	case Tuple:
		return encodeSeq([]any(val), format.KindTuple, format.KindEmptyTuple, topLevel)
	case []any:
		return encodeSeq(val, format.KindList, format.KindEmptyList, topLevel)
	case *ndarray.Array:
		return Encoded{Kind: format.KindArray, Array: val}, nil
	case [][]int64:
		return Encoded{Kind: format.KindRagged, Array: ndarray.NewRagged(val)}, nil
	default:
		return Encoded{}, fmt.Errorf("%w: %T", errs.ErrUnsupportedValue, v)
	}
}

// encodeFloat passes a finite float through untagged. NaN and the
// infinities have no JSON literal, so the attribute documents holding
// scalar leaves cannot represent them.
func encodeFloat(v any, f float64) (Encoded, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Encoded{}, fmt.Errorf("%w: non-finite float %v", errs.ErrUnsupportedValue, f)
	}

	return Encoded{Value: v}, nil
}

func encodeSeq(seq []any, kind, emptyKind format.Kind, topLevel bool) (Encoded, error) {
	if len(seq) == 0 {
		return Encoded{Kind: emptyKind, Value: wrap(emptyKind, []any{})}, nil
	}
	if topLevel {
		if grid, ok := numericGrid(seq); ok {
			return Encoded{Kind: format.KindArray, Array: grid}, nil
		}
	}

	elems := make([]any, len(seq))
	for i, elem := range seq {
		enc, err := encode(elem, false)
		if err != nil {
			return Encoded{}, err
		}
		if enc.Array != nil {
			return Encoded{}, fmt.Errorf("%w: array nested inside a sequence", errs.ErrUnsupportedValue)
		}
		elems[i] = enc.Value
	}

	return Encoded{Kind: kind, Value: wrap(kind, elems)}, nil
}

func wrap(kind format.Kind, value any) map[string]any {
	return map[string]any{kindKey: string(kind), valueKey: value}
}

// numericGrid coerces a sequence of equal-length rows whose elements all
// parse as numeric into a dense float64 array.
func numericGrid(seq []any) (*ndarray.Array, bool) {
	cols := -1
	values := make([]float64, 0, len(seq))

	for _, rowVal := range seq {
		row, ok := sequenceElems(rowVal)
		if !ok || len(row) == 0 {
			return nil, false
		}
		if cols < 0 {
			cols = len(row)
		} else if len(row) != cols {
			return nil, false
		}
		for _, elem := range row {
			f, ok := parseNumeric(elem)
			if !ok {
				return nil, false
			}
			values = append(values, f)
		}
	}

	arr := ndarray.New([]int{len(seq), cols}, ndarray.Float64)
	dst, _ := arr.Float64s()
	copy(dst, values)

	return arr, true
}

func sequenceElems(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case Tuple:
		return []any(val), true
	case []string:
		elems := make([]any, len(val))
		for i, s := range val {
			elems[i] = s
		}

		return elems, true
	default:
		return nil, false
	}
}

func parseNumeric(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)

		return f, err == nil
	default:
		return 0, false
	}
}

// Decode maps a stored attribute value back to its in-memory form. path
// names the attribute's location in the tree for error reporting.
//
// Bare scalars pass through. A tagged surrogate document dispatches on
// its kind tag; an unrecognized tag returns a *errs.DecodeError naming
// the path. Untagged mappings and arrays decode element-wise so user
// attributes written by other tooling stay readable.
func Decode(raw any, path string) (any, error) {
	switch val := raw.(type) {
	case map[string]any:
		tag, tagged := val[kindKey].(string)
		if tagged {
			kind := format.Kind(tag)
			if !kind.Valid() {
				return nil, &errs.DecodeError{Path: path, Kind: tag}
			}

			return decodeTagged(kind, val[valueKey], path)
		}

		out := make(map[string]any, len(val))
		for k, elem := range val {
			decoded, err := Decode(elem, path+"/"+k)
			if err != nil {
				return nil, err
			}
			out[k] = decoded
		}

		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			decoded, err := Decode(elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}

		return out, nil
	default:
		return raw, nil
	}
}

func decodeTagged(kind format.Kind, value any, path string) (any, error) {
	switch kind {
	case format.KindString:
		s, ok := value.(string)
		if !ok {
			return nil, malformed(path, "string payload is %T", value)
		}

		return s, nil
	case format.KindBytes:
		// Byte strings come back as UTF-8 text, never as raw bytes.
		s, ok := value.(string)
		if !ok {
			return nil, malformed(path, "bytes payload is %T", value)
		}

		return s, nil
	case format.KindStringList:
		elems, ok := value.([]any)
		if !ok {
			return nil, malformed(path, "string list payload is %T", value)
		}
		out := make([]string, len(elems))
		for i, elem := range elems {
			s, ok := elem.(string)
			if !ok {
				return nil, malformed(path, "string list element %d is %T", i, elem)
			}
			out[i] = s
		}

		return out, nil
	case format.KindList:
		elems, err := decodeSeq(value, path)
		if err != nil {
			return nil, err
		}

		return elems, nil
	case format.KindTuple:
		elems, err := decodeSeq(value, path)
		if err != nil {
			return nil, err
		}

		return Tuple(elems), nil
	case format.KindEmptyList:
		return []any{}, nil
	case format.KindEmptyTuple:
		return Tuple{}, nil
	default:
		return nil, &errs.DecodeError{Path: path, Kind: string(kind)}
	}
}

func decodeSeq(value any, path string) ([]any, error) {
	elems, ok := value.([]any)
	if !ok {
		return nil, malformed(path, "sequence payload is %T", value)
	}

	out := make([]any, len(elems))
	for i, elem := range elems {
		decoded, err := Decode(elem, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}

	return out, nil
}

// DecodeArray maps a stored array node back to its in-memory form given
// the kind tag recorded on the node.
func DecodeArray(arr *ndarray.Array, kind format.Kind, path string) (any, error) {
	switch kind {
	case format.KindArray:
		return arr, nil
	case format.KindRagged:
		rows, ok := arr.Rows()
		if !ok {
			return nil, malformed(path, "ragged node backed by %T", arr.Data())
		}

		return rows, nil
	default:
		return nil, &errs.DecodeError{Path: path, Kind: string(kind)}
	}
}

func malformed(path, msg string, args ...any) error {
	return &errs.DecodeError{Path: path, Err: fmt.Errorf(msg, args...)}
}
