package hier

import "github.com/scisig/zspy/ndarray"

// chunkByteBudget is the target chunk payload size. Chunks approach it
// from below; the store's own default applies whenever no plan is made.
const chunkByteBudget = 100_000_000

// PlanChunks derives a chunk shape for an array of the given shape and
// element size, keeping the designated signal dimensions whole per chunk
// and splitting the navigation dimensions toward the byte budget.
//
// It returns nil, deferring to the store default, when no signal axes are
// designated, when the whole array fits the budget, or when the signal
// extents alone exceed it. Every planned extent is at least 1.
func PlanChunks(shape []int, itemsize int, signalAxes []int) []int {
	if signalAxes == nil {
		return nil
	}
	if ndarray.ElemCount(shape)*itemsize < chunkByteBudget {
		return nil
	}

	isSignal := make([]bool, len(shape))
	for _, idx := range signalAxes {
		if idx < 0 || idx >= len(shape) {
			return nil
		}
		isSignal[idx] = true
	}

	signalBytes := itemsize
	for i, extent := range shape {
		if isSignal[i] {
			signalBytes *= extent
		}
	}
	if signalBytes > chunkByteBudget {
		return nil
	}

	chunks := make([]int, len(shape))
	copy(chunks, shape)

	for chunkBytes(chunks, itemsize) > chunkByteBudget {
		// Halve the largest navigation extent still above 1.
		dim := -1
		for i, extent := range chunks {
			if isSignal[i] || extent <= 1 {
				continue
			}
			if dim < 0 || extent > chunks[dim] {
				dim = i
			}
		}
		if dim < 0 {
			break
		}
		chunks[dim] = (chunks[dim] + 1) / 2
	}

	return chunks
}

func chunkBytes(chunks []int, itemsize int) int {
	return ndarray.ElemCount(chunks) * itemsize
}
