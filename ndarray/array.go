// Package ndarray provides the minimal n-dimensional array values moved
// between signal objects and the backing chunked store: dense typed arrays,
// ragged variable-length-row arrays, and the deferred Lazy handle.
//
// The package intentionally implements only what serialization needs:
// shape/dtype bookkeeping, flat typed backing slices, and rectangular
// region copies used for chunk assembly. It is not a numerics library.
package ndarray

import (
	"fmt"

	"github.com/scisig/zspy/errs"
)

// Array is a dense n-dimensional array in row-major (C) order.
//
// The backing data is a flat typed slice; its concrete type is determined
// by the dtype: []bool, []int8, ... []float64, []any for ObjectJSON and
// [][]int64 for ObjectVLen64.
type Array struct {
	shape []int
	dtype DType
	data  any
}

// ElemCount returns the number of elements implied by shape.
// An empty shape describes a scalar and counts as one element.
func ElemCount(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}

	return n
}

// Strides returns row-major strides (in elements) for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}

	return strides
}

// New allocates a zero-valued array of the given shape and dtype.
func New(shape []int, dtype DType) *Array {
	n := ElemCount(shape)

	var data any
	switch dtype {
	case Bool:
		data = make([]bool, n)
	case Int8:
		data = make([]int8, n)
	case Int16:
		data = make([]int16, n)
	case Int32:
		data = make([]int32, n)
	case Int64:
		data = make([]int64, n)
	case Uint8:
		data = make([]uint8, n)
	case Uint16:
		data = make([]uint16, n)
	case Uint32:
		data = make([]uint32, n)
	case Uint64:
		data = make([]uint64, n)
	case Float32:
		data = make([]float32, n)
	case Float64:
		data = make([]float64, n)
	case ObjectJSON:
		data = make([]any, n)
	case ObjectVLen64:
		data = make([][]int64, n)
	default:
		panic(fmt.Sprintf("ndarray: invalid dtype %d", dtype))
	}

	return &Array{shape: cloneInts(shape), dtype: dtype, data: data}
}

// FromSlice wraps a flat typed slice as an array of the given shape.
// The dtype is inferred from the slice's element type and the slice is not
// copied; the returned array takes ownership.
func FromSlice(shape []int, data any) (*Array, error) {
	var (
		dtype DType
		n     int
	)

	switch d := data.(type) {
	case []bool:
		dtype, n = Bool, len(d)
	case []int8:
		dtype, n = Int8, len(d)
	case []int16:
		dtype, n = Int16, len(d)
	case []int32:
		dtype, n = Int32, len(d)
	case []int64:
		dtype, n = Int64, len(d)
	case []uint8:
		dtype, n = Uint8, len(d)
	case []uint16:
		dtype, n = Uint16, len(d)
	case []uint32:
		dtype, n = Uint32, len(d)
	case []uint64:
		dtype, n = Uint64, len(d)
	case []float32:
		dtype, n = Float32, len(d)
	case []float64:
		dtype, n = Float64, len(d)
	case []any:
		dtype, n = ObjectJSON, len(d)
	case [][]int64:
		dtype, n = ObjectVLen64, len(d)
	default:
		return nil, fmt.Errorf("%w: unsupported slice type %T", errs.ErrInvalidDType, data)
	}

	if n != ElemCount(shape) {
		return nil, fmt.Errorf("%w: %d elements for shape %v", errs.ErrShapeMismatch, n, shape)
	}

	return &Array{shape: cloneInts(shape), dtype: dtype, data: data}, nil
}

// MustFromSlice is FromSlice that panics on error. Intended for literals.
func MustFromSlice(shape []int, data any) *Array {
	arr, err := FromSlice(shape, data)
	if err != nil {
		panic(err)
	}

	return arr
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() []int {
	return cloneInts(a.shape)
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// DType returns the element type.
func (a *Array) DType() DType {
	return a.dtype
}

// Len returns the total number of elements.
func (a *Array) Len() int {
	return ElemCount(a.shape)
}

// Data returns the flat backing slice. The caller must not resize it.
func (a *Array) Data() any {
	return a.data
}

// Float64s returns the backing slice when the dtype is Float64.
func (a *Array) Float64s() ([]float64, bool) {
	d, ok := a.data.([]float64)
	return d, ok
}

// Int64s returns the backing slice when the dtype is Int64.
func (a *Array) Int64s() ([]int64, bool) {
	d, ok := a.data.([]int64)
	return d, ok
}

// Objects returns the backing slice when the dtype is ObjectJSON.
func (a *Array) Objects() ([]any, bool) {
	d, ok := a.data.([]any)
	return d, ok
}

// Rows returns the backing slice when the dtype is ObjectVLen64.
func (a *Array) Rows() ([][]int64, bool) {
	d, ok := a.data.([][]int64)
	return d, ok
}

// At returns the element at the given flat (row-major) index.
func (a *Array) At(flat int) any {
	switch d := a.data.(type) {
	case []bool:
		return d[flat]
	case []int8:
		return d[flat]
	case []int16:
		return d[flat]
	case []int32:
		return d[flat]
	case []int64:
		return d[flat]
	case []uint8:
		return d[flat]
	case []uint16:
		return d[flat]
	case []uint32:
		return d[flat]
	case []uint64:
		return d[flat]
	case []float32:
		return d[flat]
	case []float64:
		return d[flat]
	case []any:
		return d[flat]
	case [][]int64:
		return d[flat]
	default:
		panic("ndarray: corrupt backing slice")
	}
}

// Region copies the rectangular region starting at offset with the given
// size into a fresh array.
func (a *Array) Region(offset, size []int) (*Array, error) {
	if err := a.checkRegion(offset, size); err != nil {
		return nil, err
	}

	out := New(size, a.dtype)
	copyRegion(out, zeros(len(size)), a, offset, size)

	return out, nil
}

// SetRegion copies src into the rectangular region starting at offset.
// src's shape must match the region size exactly.
func (a *Array) SetRegion(offset []int, src *Array) error {
	if src.dtype != a.dtype {
		return fmt.Errorf("%w: region dtype %s into array dtype %s", errs.ErrDTypeMismatch, src.dtype, a.dtype)
	}
	if err := a.checkRegion(offset, src.shape); err != nil {
		return err
	}

	copyRegion(a, offset, src, zeros(len(src.shape)), src.shape)

	return nil
}

func (a *Array) checkRegion(offset, size []int) error {
	if len(offset) != len(a.shape) || len(size) != len(a.shape) {
		return fmt.Errorf("%w: region rank %d/%d for array rank %d",
			errs.ErrShapeMismatch, len(offset), len(size), len(a.shape))
	}
	for i := range a.shape {
		if offset[i] < 0 || size[i] < 0 || offset[i]+size[i] > a.shape[i] {
			return fmt.Errorf("%w: region offset %v size %v exceeds shape %v",
				errs.ErrShapeMismatch, offset, size, a.shape)
		}
	}

	return nil
}

// copyRegion copies a rectangular region between two same-dtype arrays.
// Bounds are assumed valid. The innermost dimension is copied as a
// contiguous run; the outer dimensions are walked with an odometer.
func copyRegion(dst *Array, dstOff []int, src *Array, srcOff []int, size []int) {
	switch d := dst.data.(type) {
	case []bool:
		regionCopy(d, dst.shape, dstOff, src.data.([]bool), src.shape, srcOff, size)
	case []int8:
		regionCopy(d, dst.shape, dstOff, src.data.([]int8), src.shape, srcOff, size)
	case []int16:
		regionCopy(d, dst.shape, dstOff, src.data.([]int16), src.shape, srcOff, size)
	case []int32:
		regionCopy(d, dst.shape, dstOff, src.data.([]int32), src.shape, srcOff, size)
	case []int64:
		regionCopy(d, dst.shape, dstOff, src.data.([]int64), src.shape, srcOff, size)
	case []uint8:
		regionCopy(d, dst.shape, dstOff, src.data.([]uint8), src.shape, srcOff, size)
	case []uint16:
		regionCopy(d, dst.shape, dstOff, src.data.([]uint16), src.shape, srcOff, size)
	case []uint32:
		regionCopy(d, dst.shape, dstOff, src.data.([]uint32), src.shape, srcOff, size)
	case []uint64:
		regionCopy(d, dst.shape, dstOff, src.data.([]uint64), src.shape, srcOff, size)
	case []float32:
		regionCopy(d, dst.shape, dstOff, src.data.([]float32), src.shape, srcOff, size)
	case []float64:
		regionCopy(d, dst.shape, dstOff, src.data.([]float64), src.shape, srcOff, size)
	case []any:
		regionCopy(d, dst.shape, dstOff, src.data.([]any), src.shape, srcOff, size)
	case [][]int64:
		regionCopy(d, dst.shape, dstOff, src.data.([][]int64), src.shape, srcOff, size)
	}
}

func regionCopy[T any](dst []T, dstShape, dstOff []int, src []T, srcShape, srcOff []int, size []int) {
	rank := len(size)
	if rank == 0 {
		dst[0] = src[0]
		return
	}

	dstStrides := Strides(dstShape)
	srcStrides := Strides(srcShape)
	runLen := size[rank-1]

	// Odometer over the outer dimensions.
	idx := make([]int, rank-1)
	for {
		dstFlat := dstOff[rank-1] * dstStrides[rank-1]
		srcFlat := srcOff[rank-1] * srcStrides[rank-1]
		for i := 0; i < rank-1; i++ {
			dstFlat += (dstOff[i] + idx[i]) * dstStrides[i]
			srcFlat += (srcOff[i] + idx[i]) * srcStrides[i]
		}

		copy(dst[dstFlat:dstFlat+runLen], src[srcFlat:srcFlat+runLen])

		// Advance the odometer.
		dim := rank - 2
		for ; dim >= 0; dim-- {
			idx[dim]++
			if idx[dim] < size[dim] {
				break
			}
			idx[dim] = 0
		}
		if dim < 0 {
			return
		}
	}
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)

	return out
}

func zeros(n int) []int {
	return make([]int, n)
}
