package hier

import (
	"github.com/scisig/zspy/encoding"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/ndarray"
	"github.com/scisig/zspy/store"
)

// Strategy bundles the format-variant operations of the hierarchical
// walk: how arrays are opened and created, and how leaf values encode and
// decode. Writer and Reader run one walk implementation each and compose
// in a Strategy instead of being subclassed per backing.
type Strategy struct {
	CreateArray func(g *store.Group, name string, shape, chunks []int, dtype ndarray.DType) (*store.Array, error)
	OpenArray   func(g *store.Group, name string) (*store.Array, error)
	OpenGroup   func(g *store.Group, name string) (*store.Group, error)

	EncodeValue func(v any) (encoding.Encoded, error)
	DecodeValue func(raw any, path string) (any, error)
	DecodeArray func(arr *ndarray.Array, kind format.Kind, path string) (any, error)
}

// DefaultStrategy wires the walk to the directory store and the standard
// value codec, with the given chunk compression.
func DefaultStrategy(comp format.CompressionType, level int) *Strategy {
	return &Strategy{
		CreateArray: func(g *store.Group, name string, shape, chunks []int, dtype ndarray.DType) (*store.Array, error) {
			return g.CreateArray(name, shape, chunks, dtype, comp, level)
		},
		OpenArray: func(g *store.Group, name string) (*store.Array, error) {
			return g.OpenArray(name)
		},
		OpenGroup: func(g *store.Group, name string) (*store.Group, error) {
			return g.OpenGroup(name)
		},
		EncodeValue: encoding.Encode,
		DecodeValue: encoding.Decode,
		DecodeArray: encoding.DecodeArray,
	}
}
