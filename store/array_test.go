package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/ndarray"
)

func TestArray_WriteRead_AllCompressors(t *testing.T) {
	data := make([]float64, 64)
	for i := range data {
		data[i] = float64(i) * 0.5
	}
	src := ndarray.MustFromSlice([]int{8, 8}, data)

	compressors := []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	}
	for _, comp := range compressors {
		t.Run(comp.String(), func(t *testing.T) {
			st := newTestStore(t)

			arr, err := st.Root().CreateArray("data", []int{8, 8}, []int{4, 4}, ndarray.Float64, comp, 1)
			require.NoError(t, err)
			require.NoError(t, arr.Write(src))

			got, err := arr.Read()
			require.NoError(t, err)
			assert.Equal(t, src.Data(), got.Data())
		})
	}
}

func TestArray_WriteRead_AllDTypes(t *testing.T) {
	tests := []struct {
		name  string
		dtype ndarray.DType
		data  any
	}{
		{"bool", ndarray.Bool, []bool{true, false, true, true}},
		{"int8", ndarray.Int8, []int8{-1, 2, -3, 4}},
		{"int16", ndarray.Int16, []int16{-300, 301, -302, 303}},
		{"int32", ndarray.Int32, []int32{-70000, 70001, -70002, 70003}},
		{"int64", ndarray.Int64, []int64{-1 << 40, 1<<40 + 1, 0, 7}},
		{"uint8", ndarray.Uint8, []uint8{0, 127, 128, 255}},
		{"uint16", ndarray.Uint16, []uint16{0, 1, 40000, 65535}},
		{"uint32", ndarray.Uint32, []uint32{0, 1, 1 << 30, 1<<32 - 1}},
		{"uint64", ndarray.Uint64, []uint64{0, 1, 1 << 60, 1<<64 - 1}},
		{"float32", ndarray.Float32, []float32{-1.5, 0, 2.25, 3.75}},
		{"float64", ndarray.Float64, []float64{-1.5, 0, 2.25, 1e300}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)

			src := ndarray.MustFromSlice([]int{2, 2}, tt.data)
			arr, err := st.Root().CreateArray("data", []int{2, 2}, nil, tt.dtype, format.CompressionZstd, 1)
			require.NoError(t, err)
			require.NoError(t, arr.Write(src))

			got, err := arr.Read()
			require.NoError(t, err)
			assert.Equal(t, tt.data, got.Data())
		})
	}
}

func TestArray_WriteRead_EdgeChunks(t *testing.T) {
	// 5x3 array with 2x2 chunks: both trailing chunks are clipped.
	data := make([]int64, 15)
	for i := range data {
		data[i] = int64(i + 1)
	}
	src := ndarray.MustFromSlice([]int{5, 3}, data)

	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{5, 3}, []int{2, 2}, ndarray.Int64, format.CompressionS2, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(src))

	got, err := arr.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got.Data())
}

func TestArray_ChunkFileNaming(t *testing.T) {
	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{4, 4}, []int{2, 2}, ndarray.Float64, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(ndarray.New([]int{4, 4}, ndarray.Float64)))

	for _, key := range []string{"0.0", "0.1", "1.0", "1.1"} {
		_, err := os.Stat(filepath.Join(st.Path(), "data", key))
		assert.NoError(t, err, "chunk file %s", key)
	}
}

func TestArray_MissingChunkReadsAsZeros(t *testing.T) {
	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{4}, []int{2}, ndarray.Int64, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(ndarray.MustFromSlice([]int{4}, []int64{1, 2, 3, 4})))

	require.NoError(t, os.Remove(filepath.Join(st.Path(), "data", "1")))

	got, err := arr.Read()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 0, 0}, got.Data())
}

func TestArray_Write_ShapeAndDTypeChecks(t *testing.T) {
	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{4}, nil, ndarray.Float64, format.CompressionNone, 0)
	require.NoError(t, err)

	err = arr.Write(ndarray.New([]int{5}, ndarray.Float64))
	require.ErrorIs(t, err, errs.ErrShapeMismatch)

	err = arr.Write(ndarray.New([]int{4}, ndarray.Int64))
	require.ErrorIs(t, err, errs.ErrDTypeMismatch)
}

func TestArray_WriteRead_Ragged(t *testing.T) {
	rows := [][]int64{{1, 2, 3}, {4}, {}, {5, 6}}
	src := ndarray.NewRagged(rows)

	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{4}, nil, ndarray.ObjectVLen64, format.CompressionZstd, 1)
	require.NoError(t, err)
	require.NoError(t, arr.Write(src))

	got, err := arr.Read()
	require.NoError(t, err)
	back, ok := got.Rows()
	require.True(t, ok)
	assert.Equal(t, [][]int64{{1, 2, 3}, {4}, {}, {5, 6}}, back)
}

func TestArray_WriteRead_ObjectJSON(t *testing.T) {
	src := ndarray.MustFromSlice([]int{3}, []any{
		"text",
		map[string]any{"_codec": "tuple", "_value": []any{int64(1), "two"}},
		3.5,
	})

	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{3}, nil, ndarray.ObjectJSON, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(src))

	got, err := arr.Read()
	require.NoError(t, err)
	objs, ok := got.Objects()
	require.True(t, ok)
	assert.Equal(t, "text", objs[0])
	assert.Equal(t, map[string]any{"_codec": "tuple", "_value": []any{int64(1), "two"}}, objs[1])
	assert.Equal(t, 3.5, objs[2])
}

func TestArray_Attrs(t *testing.T) {
	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{2}, nil, ndarray.Float64, format.CompressionNone, 0)
	require.NoError(t, err)

	require.NoError(t, arr.PutAttrs(map[string]any{"_codec": "array"}))

	got, err := arr.Attrs()
	require.NoError(t, err)
	assert.Equal(t, "array", got["_codec"])
}

func TestArray_WriteLazy_Repartitions(t *testing.T) {
	st := newTestStore(t)

	// Source stored with 4x4 chunks.
	data := make([]float64, 64)
	for i := range data {
		data[i] = float64(i)
	}
	srcArr, err := st.Root().CreateArray("src", []int{8, 8}, []int{4, 4}, ndarray.Float64, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, srcArr.Write(ndarray.MustFromSlice([]int{8, 8}, data)))

	// Target uses a different chunk grid; WriteLazy re-partitions.
	dstArr, err := st.Root().CreateArray("dst", []int{8, 8}, []int{8, 2}, ndarray.Float64, format.CompressionZstd, 1)
	require.NoError(t, err)

	lazy := srcArr.ReadLazy()
	defer lazy.Close()
	require.NoError(t, dstArr.WriteLazy(lazy))

	got, err := dstArr.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got.Data())
}

func TestLazyArray_ReadRegion(t *testing.T) {
	st := newTestStore(t)

	data := make([]int64, 36)
	for i := range data {
		data[i] = int64(i)
	}
	arr, err := st.Root().CreateArray("data", []int{6, 6}, []int{3, 3}, ndarray.Int64, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(ndarray.MustFromSlice([]int{6, 6}, data)))

	lazy := arr.ReadLazy()
	defer lazy.Close()

	assert.Equal(t, []int{6, 6}, lazy.Shape())
	assert.Equal(t, []int{3, 3}, lazy.Chunks())
	assert.Equal(t, ndarray.Int64, lazy.DType())

	// Region spanning all four chunks.
	region, err := lazy.ReadRegion([]int{2, 2}, []int{3, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{
		14, 15, 16,
		20, 21, 22,
		26, 27, 28,
	}, region.Data())

	// Repeated reads hit the chunk cache and stay consistent.
	again, err := lazy.ReadRegion([]int{2, 2}, []int{3, 3})
	require.NoError(t, err)
	assert.Equal(t, region.Data(), again.Data())
}

func TestLazyArray_ReadRegion_Bounds(t *testing.T) {
	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{4}, []int{2}, ndarray.Int64, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(ndarray.New([]int{4}, ndarray.Int64)))

	lazy := arr.ReadLazy()
	defer lazy.Close()

	_, err = lazy.ReadRegion([]int{3}, []int{2})
	require.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestLazyArray_Compute(t *testing.T) {
	st := newTestStore(t)

	data := []float64{1, 2, 3, 4, 5, 6}
	arr, err := st.Root().CreateArray("data", []int{6}, []int{4}, ndarray.Float64, format.CompressionLZ4, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(ndarray.MustFromSlice([]int{6}, data)))

	lazy := arr.ReadLazy()
	defer lazy.Close()

	got, err := lazy.Compute()
	require.NoError(t, err)
	assert.Equal(t, data, got.Data())
}

func TestLazyArray_ClosedHandle(t *testing.T) {
	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{2}, nil, ndarray.Float64, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(ndarray.New([]int{2}, ndarray.Float64)))

	lazy := arr.ReadLazy()
	require.NoError(t, lazy.Close())

	_, err = lazy.Compute()
	require.ErrorIs(t, err, errs.ErrClosed)
}

func TestLazyArray_StoreClosed(t *testing.T) {
	st := newTestStore(t)
	arr, err := st.Root().CreateArray("data", []int{2}, nil, ndarray.Float64, format.CompressionNone, 0)
	require.NoError(t, err)
	require.NoError(t, arr.Write(ndarray.New([]int{2}, ndarray.Float64)))

	lazy := arr.ReadLazy()
	require.NoError(t, st.Close())

	_, err = lazy.ReadRegion([]int{0}, []int{2})
	require.ErrorIs(t, err, errs.ErrClosed)
}
