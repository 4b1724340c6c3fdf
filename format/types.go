package format

type (
	CompressionType uint8
	Kind            string
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// Kind tags form the closed discriminant set of the metadata value codec.
// Decode dispatches on these tags only; an unlisted tag is a decode error.
const (
	KindString     Kind = "string"      // unicode scalar
	KindStringList Kind = "string_list" // flat list of unicode strings
	KindList       Kind = "list"        // heterogeneous list, JSON-encoded elements
	KindTuple      Kind = "tuple"       // like KindList but restored as a Tuple
	KindEmptyList  Kind = "empty_list"  // zero-length placeholder, restores []any{}
	KindEmptyTuple Kind = "empty_tuple" // zero-length placeholder, restores Tuple{}
	KindBytes      Kind = "bytes"       // byte string; decodes to UTF-8 text (asymmetric)
	KindArray      Kind = "array"       // dense n-d numeric array
	KindRagged     Kind = "ragged"      // variable-length int64 rows
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// CompressorID returns the identifier stored in array metadata documents.
func (c CompressionType) CompressorID() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return ""
	}
}

// ParseCompressorID maps a stored compressor identifier back to its type.
// An empty or unknown identifier maps to CompressionNone so readers stay
// lenient about metadata written by newer revisions.
func ParseCompressorID(id string) CompressionType {
	switch id {
	case "zstd":
		return CompressionZstd
	case "s2":
		return CompressionS2
	case "lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Valid reports whether the kind tag is a member of the closed tag set.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindStringList, KindList, KindTuple,
		KindEmptyList, KindEmptyTuple, KindBytes, KindArray, KindRagged:
		return true
	default:
		return false
	}
}
