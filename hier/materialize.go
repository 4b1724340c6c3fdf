package hier

import (
	"fmt"

	"github.com/scisig/zspy/ndarray"
	"github.com/scisig/zspy/store"
)

// materializeDataset writes one named array into a group, choosing the
// write path by source kind: deferred sources stream chunk-by-chunk
// (re-partitioned to the planned chunk shape and written in parallel by
// the store), variable-length sources keep their intrinsic single-chunk
// layout, dense buffers write in one operation. A stale node at the
// target is replaced when its shape, dtype or chunking differ.
func materializeDataset(g *store.Group, key string, src any, chunks []int, strat *Strategy) (*store.Array, error) {
	switch data := src.(type) {
	case ndarray.Lazy:
		arr, err := ensureArray(g, key, data.Shape(), chunks, data.DType(), strat)
		if err != nil {
			return nil, err
		}

		return arr, arr.WriteLazy(data)
	case *ndarray.Array:
		if data.DType().IsObject() {
			// Ragged/object sources are never re-chunked.
			chunks = nil
		}
		arr, err := ensureArray(g, key, data.Shape(), chunks, data.DType(), strat)
		if err != nil {
			return nil, err
		}

		return arr, arr.Write(data)
	default:
		return nil, fmt.Errorf("cannot materialize %T as a dataset", src)
	}
}

// ensureArray reuses a compatible array node at key or recreates it.
func ensureArray(g *store.Group, key string, shape, chunks []int, dtype ndarray.DType, strat *Strategy) (*store.Array, error) {
	if g.HasChild(key) {
		existing, err := strat.OpenArray(g, key)
		if err == nil && sameLayout(existing, shape, chunks, dtype) {
			return existing, nil
		}
		if err := g.Delete(key); err != nil {
			return nil, err
		}
	}

	return strat.CreateArray(g, key, shape, chunks, dtype)
}

func sameLayout(arr *store.Array, shape, chunks []int, dtype ndarray.DType) bool {
	if arr.DType() != dtype || !equalInts(arr.Shape(), shape) {
		return false
	}
	// A nil plan accepts whatever chunking the node already has.
	return chunks == nil || equalInts(arr.Chunks(), chunks)
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
