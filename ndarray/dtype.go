package ndarray

import (
	"fmt"

	"github.com/scisig/zspy/errs"
)

// DType identifies the element type of an array.
//
// The string form follows the numpy-style struct notation used by array
// metadata documents ("<f8", "|b1", ...). Object kinds share the "|O" form
// and are disambiguated by the array's object codec identifier.
type DType uint8

const (
	Bool DType = iota + 1
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64

	// ObjectJSON is a variable-length element kind; each element is a
	// JSON document. Used for encoded metadata values such as string
	// lists and heterogeneous containers.
	ObjectJSON

	// ObjectVLen64 is a variable-length element kind; each element is a
	// sequence of int64 values. Used for ragged signal payloads.
	ObjectVLen64
)

// Size returns the per-element byte size, or 0 for variable-length kinds.
func (d DType) Size() int {
	switch d {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// IsObject reports whether the dtype is a variable-length element kind.
func (d DType) IsObject() bool {
	return d == ObjectJSON || d == ObjectVLen64
}

// String returns the numpy-style dtype notation stored in array metadata.
func (d DType) String() string {
	switch d {
	case Bool:
		return "|b1"
	case Int8:
		return "|i1"
	case Uint8:
		return "|u1"
	case Int16:
		return "<i2"
	case Uint16:
		return "<u2"
	case Int32:
		return "<i4"
	case Uint32:
		return "<u4"
	case Int64:
		return "<i8"
	case Uint64:
		return "<u8"
	case Float32:
		return "<f4"
	case Float64:
		return "<f8"
	case ObjectJSON, ObjectVLen64:
		return "|O"
	default:
		return "invalid"
	}
}

// ObjectCodecID returns the object codec identifier recorded alongside the
// "|O" dtype in array metadata, or "" for fixed-size dtypes.
func (d DType) ObjectCodecID() string {
	switch d {
	case ObjectJSON:
		return "json2"
	case ObjectVLen64:
		return "vlen-int64"
	default:
		return ""
	}
}

// ParseDType parses a stored dtype string plus object codec identifier back
// into a DType.
func ParseDType(dtype, objectCodec string) (DType, error) {
	switch dtype {
	case "|b1":
		return Bool, nil
	case "|i1":
		return Int8, nil
	case "|u1":
		return Uint8, nil
	case "<i2":
		return Int16, nil
	case "<u2":
		return Uint16, nil
	case "<i4":
		return Int32, nil
	case "<u4":
		return Uint32, nil
	case "<i8":
		return Int64, nil
	case "<u8":
		return Uint64, nil
	case "<f4":
		return Float32, nil
	case "<f8":
		return Float64, nil
	case "|O":
		switch objectCodec {
		case "json2":
			return ObjectJSON, nil
		case "vlen-int64":
			return ObjectVLen64, nil
		default:
			return 0, fmt.Errorf("%w: object dtype with unknown codec %q", errs.ErrInvalidDType, objectCodec)
		}
	default:
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidDType, dtype)
	}
}
