package hier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanChunks_NoSignalAxes(t *testing.T) {
	assert.Nil(t, PlanChunks([]int{1 << 20, 1 << 10}, 8, nil))
}

func TestPlanChunks_SmallArray(t *testing.T) {
	// 1024*1024 float64 = 8MB, well under the budget.
	assert.Nil(t, PlanChunks([]int{1024, 1024}, 8, []int{1}))
}

func TestPlanChunks_SignalExtentsStayWhole(t *testing.T) {
	// 512x512 navigation, 512x512 signal, 1 byte each: 64GB total,
	// signal space alone is 256KB.
	shape := []int{512, 512, 512, 512}
	chunks := PlanChunks(shape, 1, []int{2, 3})
	require.NotNil(t, chunks)

	assert.Equal(t, 512, chunks[2])
	assert.Equal(t, 512, chunks[3])

	for i, c := range chunks {
		assert.GreaterOrEqual(t, c, 1, "dim %d", i)
		assert.LessOrEqual(t, c, shape[i], "dim %d", i)
	}

	assert.LessOrEqual(t, chunkBytes(chunks, 1), chunkByteBudget)
}

func TestPlanChunks_SplitsLargestNavigationDim(t *testing.T) {
	// Navigation is wildly uneven; the halving must hit the big dim.
	shape := []int{100_000, 4, 1000}
	chunks := PlanChunks(shape, 8, []int{2})
	require.NotNil(t, chunks)

	assert.Equal(t, 1000, chunks[2])
	assert.Less(t, chunks[0], 100_000)
	assert.LessOrEqual(t, chunkBytes(chunks, 8), chunkByteBudget)
}

func TestPlanChunks_SignalAloneOverBudget(t *testing.T) {
	// Signal space alone is 800MB; defer to the store default.
	assert.Nil(t, PlanChunks([]int{100, 10_000, 10_000}, 8, []int{1, 2}))
}

func TestPlanChunks_OutOfRangeSignalAxis(t *testing.T) {
	assert.Nil(t, PlanChunks([]int{1 << 20, 1 << 10}, 8, []int{5}))
}

func TestPlanChunks_NavigationBottomsOutAtOne(t *testing.T) {
	// One navigation extent of 2 over a 72MB signal space: the split
	// stops at 1, never below.
	shape := []int{2, 3000, 3000}
	chunks := PlanChunks(shape, 8, []int{1, 2})
	require.NotNil(t, chunks)
	assert.Equal(t, []int{1, 3000, 3000}, chunks)
}
