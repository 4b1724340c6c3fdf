package store

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/scisig/zspy/compress"
	"github.com/scisig/zspy/endian"
	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/internal/pool"
	"github.com/scisig/zspy/ndarray"
)

// Array is a handle to a chunked array node.
//
// Element bytes live in one file per chunk; every chunk file holds the full
// chunk shape, zero-padded at the array edges. Fixed-size dtypes are stored
// little-endian in C order; variable-length dtypes are length-prefixed per
// element and always stored as a single chunk.
type Array struct {
	store *Store
	path  string
	meta  *arrayMeta
	dt    ndarray.DType
}

// Path returns the array's slash-separated path relative to the store root.
func (a *Array) Path() string {
	return a.path
}

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int {
	return cloneInts(a.meta.Shape)
}

// Chunks returns a copy of the chunk shape.
func (a *Array) Chunks() []int {
	return cloneInts(a.meta.Chunks)
}

// DType returns the element type.
func (a *Array) DType() ndarray.DType {
	return a.dt
}

// Compression returns the chunk compressor type.
func (a *Array) Compression() format.CompressionType {
	return a.meta.compression()
}

// Attrs loads the array's attribute document.
func (a *Array) Attrs() (map[string]any, error) {
	if err := a.store.check(false); err != nil {
		return nil, err
	}

	return readAttrsFile(filepath.Join(a.store.dirFor(a.path), attrsFile))
}

// PutAttrs merges attrs into the array's attribute document.
func (a *Array) PutAttrs(attrs map[string]any) error {
	if err := a.store.check(true); err != nil {
		return err
	}

	path := filepath.Join(a.store.dirFor(a.path), attrsFile)
	current, err := readAttrsFile(path)
	if err != nil {
		return err
	}
	for k, v := range attrs {
		current[k] = v
	}

	return writeAttrsFile(path, current)
}

// Write stores a dense in-memory buffer into the array in one operation.
// Chunks are serialized, compressed and written in parallel.
func (a *Array) Write(src *ndarray.Array) error {
	if err := a.store.check(true); err != nil {
		return err
	}
	if err := a.checkSource(src.Shape(), src.DType()); err != nil {
		return err
	}

	grid := chunkGrid(a.meta.Shape, a.meta.Chunks)

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for _, indices := range chunkIndices(grid) {
		eg.Go(func() error {
			offset, size := chunkBounds(indices, a.meta.Shape, a.meta.Chunks)

			block, err := src.Region(offset, size)
			if err != nil {
				return err
			}

			return a.writeChunk(indices, block, size)
		})
	}

	return eg.Wait()
}

// WriteLazy streams a deferred array into this array chunk by chunk. The
// source is read region-by-region aligned to this array's chunk grid, so a
// source with different intrinsic chunking is re-partitioned on the fly.
// Chunk writes run in parallel.
func (a *Array) WriteLazy(src ndarray.Lazy) error {
	if err := a.store.check(true); err != nil {
		return err
	}
	if err := a.checkSource(src.Shape(), src.DType()); err != nil {
		return err
	}

	grid := chunkGrid(a.meta.Shape, a.meta.Chunks)

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for _, indices := range chunkIndices(grid) {
		eg.Go(func() error {
			offset, size := chunkBounds(indices, a.meta.Shape, a.meta.Chunks)

			block, err := src.ReadRegion(offset, size)
			if err != nil {
				return err
			}

			return a.writeChunk(indices, block, size)
		})
	}

	return eg.Wait()
}

// writeChunk pads block (of clipped size) to the full chunk shape when
// needed, then serializes, compresses and writes the chunk file.
func (a *Array) writeChunk(indices []int, block *ndarray.Array, size []int) error {
	full := block
	if !equalInts(size, a.meta.Chunks) {
		full = ndarray.New(a.meta.Chunks, a.dt)
		if err := full.SetRegion(make([]int, len(size)), block); err != nil {
			return err
		}
	}

	buf := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(buf)

	engine := endian.GetLittleEndianEngine()
	if err := serializeChunk(full, engine, buf); err != nil {
		return err
	}

	codec, err := compress.CreateCodec(a.meta.compression(), a.meta.compressionLevel(), "chunk")
	if err != nil {
		return err
	}
	payload, err := codec.Compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("compressing chunk %v of %s: %w", indices, a.path, err)
	}

	file := filepath.Join(a.store.dirFor(a.path), chunkKey(indices))
	if err := os.WriteFile(file, payload, 0o644); err != nil {
		return fmt.Errorf("writing chunk %v of %s: %w", indices, a.path, err)
	}

	return nil
}

// readChunk loads one chunk as a full-chunk-shaped array. A missing chunk
// file decodes as all zeros.
func (a *Array) readChunk(indices []int) (*ndarray.Array, error) {
	file := filepath.Join(a.store.dirFor(a.path), chunkKey(indices))

	payload, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return ndarray.New(a.meta.Chunks, a.dt), nil
		}

		return nil, fmt.Errorf("reading chunk %v of %s: %w", indices, a.path, err)
	}

	codec, err := compress.CreateCodec(a.meta.compression(), a.meta.compressionLevel(), "chunk")
	if err != nil {
		return nil, err
	}
	raw, err := codec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("decompressing chunk %v of %s: %w", indices, a.path, err)
	}

	engine := endian.GetLittleEndianEngine()

	return deserializeChunk(raw, a.meta.Chunks, a.dt, engine)
}

// Read materializes the whole array into memory.
func (a *Array) Read() (*ndarray.Array, error) {
	if err := a.store.check(false); err != nil {
		return nil, err
	}

	out := ndarray.New(a.meta.Shape, a.dt)
	grid := chunkGrid(a.meta.Shape, a.meta.Chunks)

	for _, indices := range chunkIndices(grid) {
		chunk, err := a.readChunk(indices)
		if err != nil {
			return nil, err
		}

		offset, size := chunkBounds(indices, a.meta.Shape, a.meta.Chunks)
		block := chunk
		if !equalInts(size, a.meta.Chunks) {
			block, err = chunk.Region(make([]int, len(size)), size)
			if err != nil {
				return nil, err
			}
		}
		if err := out.SetRegion(offset, block); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadLazy returns a deferred handle over the array. The handle shares the
// store; the store must stay open for the handle's lifetime.
func (a *Array) ReadLazy() *LazyArray {
	return newLazyArray(a)
}

func (a *Array) checkSource(shape []int, dtype ndarray.DType) error {
	if !equalInts(shape, a.meta.Shape) {
		return fmt.Errorf("%w: buffer shape %v into array shape %v", errs.ErrShapeMismatch, shape, a.meta.Shape)
	}
	if dtype != a.dt {
		return fmt.Errorf("%w: buffer dtype %s into array dtype %s", errs.ErrDTypeMismatch, dtype, a.dt)
	}

	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
