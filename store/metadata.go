package store

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/ndarray"
)

const (
	groupMetaFile = ".zgroup"
	arrayMetaFile = ".zarray"
	attrsFile     = ".zattrs"

	storeFormatVersion = 2
)

// groupMeta is the metadata document marking a directory as a group.
type groupMeta struct {
	StoreFormat int `json:"zarr_format"`
}

// compressorConfig records the chunk compressor in array metadata.
type compressorConfig struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// objectCodecConfig records the element codec for variable-length dtypes.
type objectCodecConfig struct {
	ID string `json:"id"`
}

// arrayMeta is the metadata document describing a chunked array.
type arrayMeta struct {
	Shape       []int              `json:"shape"`
	Chunks      []int              `json:"chunks"`
	DType       string             `json:"dtype"`
	Compressor  *compressorConfig  `json:"compressor"`
	ObjectCodec *objectCodecConfig `json:"object_codec,omitempty"`
	FillValue   any                `json:"fill_value"`
	Order       string             `json:"order"`
	StoreFormat int                `json:"zarr_format"`
}

func newArrayMeta(shape, chunks []int, dtype ndarray.DType, comp format.CompressionType, level int) *arrayMeta {
	meta := &arrayMeta{
		Shape:       shape,
		Chunks:      chunks,
		DType:       dtype.String(),
		FillValue:   0,
		Order:       "C",
		StoreFormat: storeFormatVersion,
	}
	if id := comp.CompressorID(); id != "" {
		meta.Compressor = &compressorConfig{ID: id, Level: level}
	}
	if id := dtype.ObjectCodecID(); id != "" {
		meta.ObjectCodec = &objectCodecConfig{ID: id}
	}

	return meta
}

func (m *arrayMeta) dtype() (ndarray.DType, error) {
	objectCodec := ""
	if m.ObjectCodec != nil {
		objectCodec = m.ObjectCodec.ID
	}

	return ndarray.ParseDType(m.DType, objectCodec)
}

func (m *arrayMeta) compression() format.CompressionType {
	if m.Compressor == nil {
		return format.CompressionNone
	}

	return format.ParseCompressorID(m.Compressor.ID)
}

func (m *arrayMeta) compressionLevel() int {
	if m.Compressor == nil {
		return 0
	}

	return m.Compressor.Level
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	return os.WriteFile(path, data, 0o644)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errs.ErrNotFound, path)
		}

		return err
	}

	return json.Unmarshal(data, v)
}

// readAttrsFile loads an attribute document. Number literals keep the
// float/int distinction of their lexical form, so attribute values survive
// a write/read cycle without silently changing Go type.
func readAttrsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}

		return nil, err
	}

	decoded, err := decodeJSONValue(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	attrs, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decoding %s: not a JSON object", path)
	}

	return attrs, nil
}

// writeAttrsFile stores an attribute document using the float-preserving
// value encoder.
func writeAttrsFile(path string, attrs map[string]any) error {
	data, err := appendJSONValue(nil, attrs)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	return os.WriteFile(path, data, 0o644)
}
