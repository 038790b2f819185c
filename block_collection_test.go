package bigio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flattenBlocks(t *testing.T, bc *BlockCollection[int]) []int {
	t.Helper()
	var out []int
	for b := range bc.All() {
		out = append(out, b.Slice()...)
	}
	return out
}

func TestBlockCollection_SplittingPolicy(t *testing.T) {
	seed := make([]int, 10)
	for i := range seed {
		seed[i] = i
	}
	bc, err := NewBlockCollectionFromSeed(seed, 4, 8)
	require.NoError(t, err)

	require.Equal(t, 3, bc.Count())

	b0, err := bc.At(0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, b0.Slice())

	b1, err := bc.At(1)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6, 7}, b1.Slice())

	b2, err := bc.At(2)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 9}, b2.Slice())
}

func TestBlockCollection_EmptySeedProducesNoBlocks(t *testing.T) {
	bc, err := NewBlockCollectionFromSeed[int](nil, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, bc.Count())
}

func TestBlockCollection_RoundTrip(t *testing.T) {
	seed := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	bc, err := NewBlockCollectionFromSeed(seed, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, seed, flattenBlocks(t, bc))
}

func TestBlockCollection_AddNewBlockIsEmpty(t *testing.T) {
	bc := NewBlockCollection[int]()
	bc.AddNewBlock()
	require.Equal(t, 1, bc.Count())

	b, err := bc.At(0)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
}

func TestBlockCollection_AddRangeRejectsNilChunk(t *testing.T) {
	bc := NewBlockCollection[int]()
	err := bc.AddRange([][]int{{1, 2}, nil})
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestBlockCollection_AddRangeAllowsEmptyChunk(t *testing.T) {
	bc := NewBlockCollection[int]()
	err := bc.AddRange([][]int{{1, 2}, {}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, flattenBlocks(t, bc))
}

func TestBlockCollection_InsertAtBoundaries(t *testing.T) {
	bc, err := NewBlockCollectionFromSeed([]int{1, 2, 3, 4}, 4, 8)
	require.NoError(t, err)

	require.NoError(t, bc.Insert(0, []int{-1, -2}))
	require.NoError(t, bc.Insert(bc.Count(), []int{99}))

	assert.Equal(t, -1, mustBlock(t, bc, 0).Slice()[0])
	last, err := bc.At(bc.Count() - 1)
	require.NoError(t, err)
	assert.Equal(t, []int{99}, last.Slice())
}

func mustBlock(t *testing.T, bc *BlockCollection[int], i int) *Block[int] {
	t.Helper()
	b, err := bc.At(i)
	require.NoError(t, err)
	return b
}

func TestBlockCollection_TryToDivideBlock(t *testing.T) {
	bc2, err := NewBlockCollectionWithSizes[int](2, 4)
	require.NoError(t, err)

	// Force a single oversize block directly, bypassing the splitting
	// policy that Add would otherwise apply.
	require.NoError(t, bc2.InsertNewBlock(0))
	b, err := bc2.At(0)
	require.NoError(t, err)
	b.AppendRange([]int{1, 2, 3, 4})

	require.NoError(t, bc2.TryToDivideBlock(0))
	require.Equal(t, 2, bc2.Count())
	b0, _ := bc2.At(0)
	b1, _ := bc2.At(1)
	assert.Equal(t, 2, b0.Len())
	assert.Equal(t, 2, b1.Len())
}

func TestBlockCollection_RemoveLastBlock(t *testing.T) {
	bc, err := NewBlockCollectionFromSeed([]int{1, 2, 3, 4, 5}, 4, 8)
	require.NoError(t, err)
	require.Equal(t, 2, bc.Count())

	require.NoError(t, bc.RemoveAt(1))
	assert.Equal(t, 1, bc.Count())
}

func TestBlockCollection_SizeSetterBounds(t *testing.T) {
	bc := NewBlockCollection[int]()
	assert.ErrorIs(t, bc.SetDefaultBlockSize(-1), ErrOutOfRange)
	assert.ErrorIs(t, bc.SetMaxBlockSize(-1), ErrOutOfRange)
	assert.ErrorIs(t, bc.SetDefaultBlockSize(bc.MaxBlockSize()+1), ErrContractViolation)
}

func TestBlockCollection_AddFirstBlockIfThereIsNeeded(t *testing.T) {
	bc := NewBlockCollection[int]()
	bc.AddFirstBlockIfThereIsNeeded()
	assert.Equal(t, 1, bc.Count())
	bc.AddFirstBlockIfThereIsNeeded()
	assert.Equal(t, 1, bc.Count())
}
