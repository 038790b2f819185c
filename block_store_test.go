package bigio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceBlockStore_InsertRangeAndOrder(t *testing.T) {
	s := newSliceBlockStore[int]()
	a, b, c := NewBlock[int](1), NewBlock[int](1), NewBlock[int](1)
	a.Append(1)
	b.Append(2)
	c.Append(3)

	s.Add(a)
	s.Add(c)
	require.NoError(t, s.InsertRange(1, []*Block[int]{b}))

	got, err := s.At(1)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Equal(t, 3, s.Count())
}

func TestSliceBlockStore_RemoveByReference(t *testing.T) {
	s := newSliceBlockStore[int]()
	a, b := NewBlock[int](1), NewBlock[int](1)
	s.Add(a)
	s.Add(b)

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.Equal(t, 1, s.Count())
}

func TestSliceBlockStore_ReverseAndContains(t *testing.T) {
	s := newSliceBlockStore[int]()
	a, b, c := NewBlock[int](1), NewBlock[int](1), NewBlock[int](1)
	s.AddRange([]*Block[int]{a, b, c})

	s.Reverse()
	got, err := s.At(0)
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.True(t, s.Contains(a))
}
