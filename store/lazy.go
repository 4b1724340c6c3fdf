package store

import (
	"fmt"
	"sync"

	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/internal/hash"
	"github.com/scisig/zspy/ndarray"
)

// LazyArray defers element access to on-demand chunk reads. It satisfies
// ndarray.Lazy and keeps decompressed chunks in a small cache keyed by
// their store path, so repeated region reads over the same chunk hit disk
// once. The backing store must stay open for the handle's lifetime.
type LazyArray struct {
	arr *Array

	mu     sync.Mutex
	cache  map[uint64]*ndarray.Array
	closed bool
}

func newLazyArray(arr *Array) *LazyArray {
	return &LazyArray{
		arr:   arr,
		cache: make(map[uint64]*ndarray.Array),
	}
}

// Shape returns a copy of the array shape.
func (l *LazyArray) Shape() []int {
	return l.arr.Shape()
}

// DType returns the element type.
func (l *LazyArray) DType() ndarray.DType {
	return l.arr.DType()
}

// Chunks returns a copy of the stored chunk shape.
func (l *LazyArray) Chunks() []int {
	return l.arr.Chunks()
}

// ReadRegion loads the requested region, touching only the chunks that
// intersect it.
func (l *LazyArray) ReadRegion(offset, size []int) (*ndarray.Array, error) {
	if err := l.check(); err != nil {
		return nil, err
	}

	shape := l.arr.meta.Shape
	chunks := l.arr.meta.Chunks
	if len(offset) != len(shape) || len(size) != len(shape) {
		return nil, fmt.Errorf("%w: region rank %d for array rank %d", errs.ErrShapeMismatch, len(offset), len(shape))
	}
	for i := range shape {
		if offset[i] < 0 || size[i] < 0 || offset[i]+size[i] > shape[i] {
			return nil, fmt.Errorf("%w: region offset %v size %v exceeds shape %v", errs.ErrShapeMismatch, offset, size, shape)
		}
	}

	out := ndarray.New(size, l.arr.dt)

	// First and last chunk index touched along each dimension.
	lo := make([]int, len(shape))
	hi := make([]int, len(shape))
	span := make([]int, len(shape))
	for i := range shape {
		lo[i] = offset[i] / chunks[i]
		end := offset[i] + size[i]
		if end == offset[i] {
			end = offset[i] + 1 // empty extent still visits one chunk row
		}
		hi[i] = (end - 1) / chunks[i]
		if hi[i] < lo[i] {
			hi[i] = lo[i]
		}
		span[i] = hi[i] - lo[i] + 1
	}

	for _, rel := range chunkIndices(span) {
		indices := make([]int, len(rel))
		for i := range rel {
			indices[i] = lo[i] + rel[i]
		}

		chunk, err := l.chunk(indices)
		if err != nil {
			return nil, err
		}

		// Intersection of the region with this chunk, in absolute coords.
		srcOff := make([]int, len(shape))
		dstOff := make([]int, len(shape))
		interSize := make([]int, len(shape))
		empty := false
		for i := range shape {
			chunkStart := indices[i] * chunks[i]
			start := max(offset[i], chunkStart)
			end := min(offset[i]+size[i], chunkStart+chunks[i])
			if end <= start {
				empty = true
				break
			}
			srcOff[i] = start - chunkStart
			dstOff[i] = start - offset[i]
			interSize[i] = end - start
		}
		if empty {
			continue
		}

		block, err := chunk.Region(srcOff, interSize)
		if err != nil {
			return nil, err
		}
		if err := out.SetRegion(dstOff, block); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Compute materializes the whole array into memory.
func (l *LazyArray) Compute() (*ndarray.Array, error) {
	if err := l.check(); err != nil {
		return nil, err
	}

	return l.arr.Read()
}

// Close drops the chunk cache and detaches the handle. The backing store
// is owned by the caller and is not closed.
func (l *LazyArray) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	l.cache = nil

	return nil
}

func (l *LazyArray) check() error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()

	if closed {
		return fmt.Errorf("%w: lazy array %s", errs.ErrClosed, l.arr.path)
	}

	return l.arr.store.check(false)
}

// chunk returns the decompressed chunk at indices, loading it on first use.
func (l *LazyArray) chunk(indices []int) (*ndarray.Array, error) {
	key := hash.ID(l.arr.path + "/" + chunkKey(indices))

	l.mu.Lock()
	cached, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	chunk, err := l.arr.readChunk(indices)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.cache != nil {
		l.cache[key] = chunk
	}
	l.mu.Unlock()

	return chunk, nil
}
