package bigio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMap(t *testing.T, seed []int, defaultSize, maxSize int) (*BlockCollection[int], *ArrayMap[int]) {
	t.Helper()
	bc, err := NewBlockCollectionFromSeed(seed, defaultSize, maxSize)
	require.NoError(t, err)
	m, err := NewArrayMap[int](NopBalancer{}, bc)
	require.NoError(t, err)
	return bc, m
}

func TestArrayMap_BlockInfoScenario1(t *testing.T) {
	seed := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, m := seededMap(t, seed, 4, 8)

	bi, err := m.BlockInfo(5)
	require.NoError(t, err)
	assert.Equal(t, BlockInfo{IndexOfBlock: 1, CommonStartIndex: 4, Count: 4}, bi)
}

func TestArrayMap_LookupSoundnessAcrossFullRange(t *testing.T) {
	seed := make([]int, 37)
	for i := range seed {
		seed[i] = i
	}
	_, m := seededMap(t, seed, 4, 8)

	for i := range seed {
		bi, err := m.BlockInfo(i)
		require.NoError(t, err)
		assert.LessOrEqual(t, bi.CommonStartIndex, i)
		assert.Less(t, i, bi.CommonStartIndex+bi.Count)
	}
}

func TestArrayMap_BlockInfoOutOfRange(t *testing.T) {
	_, m := seededMap(t, []int{0, 1, 2, 3}, 4, 8)
	_, err := m.BlockInfo(99)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestArrayMap_MultiBlockRangeScenario3Corrected(t *testing.T) {
	// spec.md's own scenario 3 (Range(2,9) on a 10-element seed) cannot be
	// correct as stated: it would require a global index past the array's
	// length. Range(2,8) is the nearby well-formed case and exercises the
	// same start/middle/end clipping behavior.
	seed := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, m := seededMap(t, seed, 4, 8)

	mbr, err := m.MultiBlockRange(Range{Index: 2, Count: 8})
	require.NoError(t, err)

	assert.Equal(t, 0, mbr.IndexOfStartBlock)
	assert.Equal(t, 3, mbr.Count)
	assert.Equal(t, []BlockRange{
		{Subindex: 2, Count: 2, CommonStartIndex: 0},
		{Subindex: 0, Count: 4, CommonStartIndex: 4},
		{Subindex: 0, Count: 2, CommonStartIndex: 8},
	}, mbr.Ranges)
}

func TestArrayMap_MultiBlockRangeEmptyAtZero(t *testing.T) {
	_, m := seededMap(t, nil, 4, 8)
	mbr, err := m.MultiBlockRange(Range{Index: 0, Count: 0})
	require.NoError(t, err)
	assert.Equal(t, MultiBlockRange{IndexOfStartBlock: 0, Count: 0}, mbr)
}

func TestArrayMap_MultiBlockRangeProjectionTilesExactly(t *testing.T) {
	seed := make([]int, 23)
	for i := range seed {
		seed[i] = i
	}
	_, m := seededMap(t, seed, 4, 8)

	mbr, err := m.MultiBlockRange(Range{Index: 3, Count: 15})
	require.NoError(t, err)

	var reconstructed []int
	for _, br := range mbr.Ranges {
		for i := br.Subindex; i < br.Subindex+br.Count; i++ {
			reconstructed = append(reconstructed, br.CommonStartIndex+i)
		}
	}
	expected := make([]int, 15)
	for i := range expected {
		expected[i] = 3 + i
	}
	assert.Equal(t, expected, reconstructed)
}

func TestArrayMap_ReverseMultiBlockRangeDuality(t *testing.T) {
	seed := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, m := seededMap(t, seed, 4, 8)

	rev, err := m.ReverseMultiBlockRange(Range{Index: 9, Count: 5})
	require.NoError(t, err)

	assert.Equal(t, 2, rev.IndexOfStartBlock)
	assert.Equal(t, 2, rev.Count)
	assert.Equal(t, []BlockRange{
		{Subindex: 1, Count: 2, CommonStartIndex: 8},
		{Subindex: 3, Count: 3, CommonStartIndex: 4},
	}, rev.Ranges)

	// duality: same tiling as the forward projection of Range(5,5), reversed.
	forward, err := m.MultiBlockRange(Range{Index: 5, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, len(forward.Ranges), len(rev.Ranges))
	for i, fr := range forward.Ranges {
		rr := rev.Ranges[len(rev.Ranges)-1-i]
		assert.Equal(t, fr.CommonStartIndex, rr.CommonStartIndex)
		assert.Equal(t, fr.Count, rr.Count)
		assert.Equal(t, fr.Subindex+fr.Count-1, rr.Subindex)
	}
}

func TestArrayMap_DataChangedInvalidatesCache(t *testing.T) {
	bc, m := seededMap(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, 4, 8)

	_, err := m.BlockInfo(7)
	require.NoError(t, err)
	assert.Equal(t, 8, m.GetCachedElementCount())

	b, err := bc.At(0)
	require.NoError(t, err)
	require.NoError(t, b.RemoveAt(0))
	require.NoError(t, m.DataChanged(0))

	assert.Less(t, m.GetCachedElementCount(), 8)

	bi, err := m.BlockInfo(0)
	require.NoError(t, err)
	assert.Equal(t, BlockInfo{IndexOfBlock: 0, CommonStartIndex: 0, Count: 3}, bi)
}

func TestArrayMap_DataChangedOutOfRange(t *testing.T) {
	_, m := seededMap(t, []int{1, 2}, 4, 8)
	assert.ErrorIs(t, m.DataChanged(5), ErrOutOfRange)
}

func TestArrayMap_DataChangedAfterBlockRemovingTailReset(t *testing.T) {
	bc, m := seededMap(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, 4, 8)
	_, err := m.BlockInfo(7)
	require.NoError(t, err)

	require.NoError(t, bc.RemoveAt(1))
	require.NoError(t, m.DataChangedAfterBlockRemoving(1))

	assert.Equal(t, 4, m.GetCachedElementCount())
	bi, err := m.BlockInfo(0)
	require.NoError(t, err)
	assert.Equal(t, BlockInfo{IndexOfBlock: 0, CommonStartIndex: 0, Count: 4}, bi)
}
