package bigio

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBigArray(t *testing.T, seed []int) *BigArray[int] {
	t.Helper()
	cfg := Config{DefaultBlockSize: 4, MaxBlockSize: 8, BookmarkCapacity: 4}
	ba, err := NewBigArrayFromSeed(seed, cfg)
	require.NoError(t, err)
	return ba
}

func TestBigArray_AppendAndAt(t *testing.T) {
	ba := newTestBigArray(t, nil)
	for i := 0; i < 20; i++ {
		require.NoError(t, ba.Append(i))
	}
	require.Equal(t, 20, ba.Count())

	for i := 0; i < 20; i++ {
		v, err := ba.At(i)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestBigArray_InsertAtFrontAndMiddle(t *testing.T) {
	ba := newTestBigArray(t, []int{1, 2, 3, 4, 5})
	require.NoError(t, ba.Insert(0, -1))
	require.NoError(t, ba.Insert(3, 99))

	v, err := ba.At(0)
	require.NoError(t, err)
	assert.Equal(t, -1, v)

	all := slices.Collect(ba.All())
	assert.Equal(t, []int{-1, 1, 2, 99, 3, 4, 5}, all)
}

func TestBigArray_SetOverwrites(t *testing.T) {
	ba := newTestBigArray(t, []int{1, 2, 3})
	require.NoError(t, ba.Set(1, 42))
	v, err := ba.At(1)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestBigArray_RemoveDropsEmptiedBlock(t *testing.T) {
	ba := newTestBigArray(t, []int{1, 2, 3, 4, 5})
	require.Equal(t, 2, ba.BlockCount())

	// drain the second block (5 is alone in it)
	require.NoError(t, ba.Remove(4))
	assert.Equal(t, 1, ba.BlockCount())
	assert.Equal(t, 4, ba.Count())
}

func TestBigArray_OutOfRangeErrors(t *testing.T) {
	ba := newTestBigArray(t, []int{1, 2, 3})
	_, err := ba.At(10)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, ba.Remove(-1), ErrOutOfRange)
	assert.ErrorIs(t, ba.Insert(10, 1), ErrOutOfRange)
}

func TestBigArray_Range(t *testing.T) {
	ba := newTestBigArray(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	got, err := ba.Range(2, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7}, got)
}

func TestBigArray_WhereAndSelect(t *testing.T) {
	ba := newTestBigArray(t, []int{1, 2, 3, 4, 5, 6})
	evens := slices.Collect(Where(ba.All(), func(v int) bool { return v%2 == 0 }))
	assert.Equal(t, []int{2, 4, 6}, evens)

	doubled := slices.Collect(Select(ba.All(), func(v int) int { return v * 2 }))
	assert.Equal(t, []int{2, 4, 6, 8, 10, 12}, doubled)
}

func TestBigArray_Bookmarks(t *testing.T) {
	ba := newTestBigArray(t, []int{0, 1, 2, 3, 4, 5})

	require.NoError(t, ba.SetBookmark("midpoint", 3))
	idx, ok := ba.ResolveBookmark("midpoint")
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = ba.ResolveBookmark("missing")
	assert.False(t, ok)

	ba.DeleteBookmark("midpoint")
	_, ok = ba.ResolveBookmark("midpoint")
	assert.False(t, ok)
}

func TestBigArray_BookmarkOutOfRange(t *testing.T) {
	ba := newTestBigArray(t, []int{1, 2, 3})
	assert.ErrorIs(t, ba.SetBookmark("x", 10), ErrOutOfRange)
}

func TestBigArray_BookmarkInfoReflectsLoad(t *testing.T) {
	ba := newTestBigArray(t, []int{0, 1, 2, 3})
	for i := 0; i < 4; i++ {
		require.NoError(t, ba.SetBookmark(string(rune('a'+i)), i))
	}
	info := ba.BookmarkInfo()
	assert.Greater(t, info.LoadFactor, float32(0))
}
