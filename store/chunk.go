package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/scisig/zspy/endian"
	"github.com/scisig/zspy/internal/pool"
	"github.com/scisig/zspy/ndarray"
)

// chunkKey generates the file name for a chunk given its grid indices.
// Indices are joined with ".", e.g. [1 4] -> "1.4". A 0-d array stores its
// single chunk under "0".
func chunkKey(indices []int) string {
	if len(indices) == 0 {
		return "0"
	}
	if len(indices) == 1 {
		return strconv.Itoa(indices[0])
	}

	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(strconv.Itoa(idx))
	}

	return sb.String()
}

// chunkGrid returns the number of chunks along each dimension.
func chunkGrid(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}

	return grid
}

// chunkIndices yields every chunk index vector of the grid in C order.
func chunkIndices(grid []int) [][]int {
	total := ndarray.ElemCount(grid)
	out := make([][]int, 0, total)

	idx := make([]int, len(grid))
	for range total {
		out = append(out, append([]int(nil), idx...))

		for dim := len(grid) - 1; dim >= 0; dim-- {
			idx[dim]++
			if idx[dim] < grid[dim] {
				break
			}
			idx[dim] = 0
		}
	}

	return out
}

// chunkBounds returns the offset of a chunk within the array and its
// clipped size. Edge chunks are clipped to the array bounds; the stored
// chunk payload is always full chunk shape with zero padding.
func chunkBounds(indices, shape, chunks []int) (offset, size []int) {
	offset = make([]int, len(shape))
	size = make([]int, len(shape))
	for i := range shape {
		offset[i] = indices[i] * chunks[i]
		size[i] = chunks[i]
		if offset[i]+size[i] > shape[i] {
			size[i] = shape[i] - offset[i]
		}
	}

	return offset, size
}

// serializeChunk encodes a full-chunk-shaped array into its on-disk byte
// layout: elements in C order, fixed dtypes little-endian, variable-length
// dtypes length-prefixed per element.
func serializeChunk(arr *ndarray.Array, engine endian.EndianEngine, buf *pool.ByteBuffer) error {
	switch data := arr.Data().(type) {
	case []bool:
		for _, v := range data {
			b := byte(0)
			if v {
				b = 1
			}
			buf.B = append(buf.B, b)
		}
	case []int8:
		for _, v := range data {
			buf.B = append(buf.B, byte(v))
		}
	case []uint8:
		buf.B = append(buf.B, data...)
	case []int16:
		for _, v := range data {
			buf.B = engine.AppendUint16(buf.B, uint16(v))
		}
	case []uint16:
		for _, v := range data {
			buf.B = engine.AppendUint16(buf.B, v)
		}
	case []int32:
		for _, v := range data {
			buf.B = engine.AppendUint32(buf.B, uint32(v))
		}
	case []uint32:
		for _, v := range data {
			buf.B = engine.AppendUint32(buf.B, v)
		}
	case []int64:
		for _, v := range data {
			buf.B = engine.AppendUint64(buf.B, uint64(v))
		}
	case []uint64:
		for _, v := range data {
			buf.B = engine.AppendUint64(buf.B, v)
		}
	case []float32:
		for _, v := range data {
			buf.B = engine.AppendUint32(buf.B, math.Float32bits(v))
		}
	case []float64:
		for _, v := range data {
			buf.B = engine.AppendUint64(buf.B, math.Float64bits(v))
		}
	case [][]int64:
		for _, row := range data {
			buf.B = binary.AppendUvarint(buf.B, uint64(len(row)))
			for _, v := range row {
				buf.B = engine.AppendUint64(buf.B, uint64(v))
			}
		}
	case []any:
		for _, elem := range data {
			encoded, err := appendJSONValue(nil, elem)
			if err != nil {
				return fmt.Errorf("encoding object element: %w", err)
			}
			buf.B = binary.AppendUvarint(buf.B, uint64(len(encoded)))
			buf.B = append(buf.B, encoded...)
		}
	default:
		return fmt.Errorf("serializing chunk: unsupported backing slice %T", data)
	}

	return nil
}

// deserializeChunk decodes an on-disk chunk payload into a full-chunk-shaped
// array.
func deserializeChunk(data []byte, shape []int, dtype ndarray.DType, engine endian.EndianEngine) (*ndarray.Array, error) {
	n := ndarray.ElemCount(shape)
	arr := ndarray.New(shape, dtype)

	if !dtype.IsObject() {
		itemsize := dtype.Size()
		if len(data) < n*itemsize {
			return nil, fmt.Errorf("chunk payload too short: %d bytes for %d elements", len(data), n)
		}
	}

	switch out := arr.Data().(type) {
	case []bool:
		for i := range out {
			out[i] = data[i] != 0
		}
	case []int8:
		for i := range out {
			out[i] = int8(data[i])
		}
	case []uint8:
		copy(out, data)
	case []int16:
		for i := range out {
			out[i] = int16(engine.Uint16(data[i*2:]))
		}
	case []uint16:
		for i := range out {
			out[i] = engine.Uint16(data[i*2:])
		}
	case []int32:
		for i := range out {
			out[i] = int32(engine.Uint32(data[i*4:]))
		}
	case []uint32:
		for i := range out {
			out[i] = engine.Uint32(data[i*4:])
		}
	case []int64:
		for i := range out {
			out[i] = int64(engine.Uint64(data[i*8:]))
		}
	case []uint64:
		for i := range out {
			out[i] = engine.Uint64(data[i*8:])
		}
	case []float32:
		for i := range out {
			out[i] = math.Float32frombits(engine.Uint32(data[i*4:]))
		}
	case []float64:
		for i := range out {
			out[i] = math.Float64frombits(engine.Uint64(data[i*8:]))
		}
	case [][]int64:
		offset := 0
		for i := range out {
			rowLen, varintSize, err := readElemLen(data, offset)
			if err != nil {
				return nil, err
			}
			offset += varintSize

			if offset+rowLen*8 > len(data) {
				return nil, fmt.Errorf("chunk payload truncated at element %d", i)
			}
			row := make([]int64, rowLen)
			for j := range row {
				row[j] = int64(engine.Uint64(data[offset+j*8:]))
			}
			offset += rowLen * 8
			out[i] = row
		}
	case []any:
		offset := 0
		for i := range out {
			elemLen, varintSize, err := readElemLen(data, offset)
			if err != nil {
				return nil, err
			}
			offset += varintSize

			if offset+elemLen > len(data) {
				return nil, fmt.Errorf("chunk payload truncated at element %d", i)
			}

			elem, err := decodeJSONValue(data[offset : offset+elemLen])
			if err != nil {
				return nil, fmt.Errorf("decoding object element %d: %w", i, err)
			}
			out[i] = elem
			offset += elemLen
		}
	}

	return arr, nil
}

func readElemLen(data []byte, offset int) (int, int, error) {
	if offset >= len(data) {
		return 0, 0, fmt.Errorf("chunk payload truncated at offset %d", offset)
	}

	length, n := binary.Uvarint(data[offset:])
	if n <= 0 || length > uint64(^uint(0)>>1) {
		return 0, 0, fmt.Errorf("invalid element length at offset %d", offset)
	}

	return int(length), n, nil
}
