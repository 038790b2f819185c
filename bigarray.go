package bigio

import (
	"iter"
	"sync"
)

// BigArray is the user-facing, randomly-addressable, mutable sequence built
// on top of BlockCollection and ArrayMap. It is a thin wrapper: every
// mutation translates to a block-level operation on the collection
// followed by the matching ArrayMap notification, and every lookup
// consults the map for (block, offset) before addressing the right block.
//
// BigArray also keeps a small label->index bookmark table (BookmarkTable)
// so callers can name positions of interest and re-resolve them after the
// array has shifted underneath.
type BigArray[T any] struct {
	mu        sync.Mutex
	blocks    *BlockCollection[T]
	index     *ArrayMap[T]
	bookmarks *BookmarkTable
	length    int
}

// NewBigArray creates an empty BigArray using cfg's size policy.
func NewBigArray[T any](cfg Config) (*BigArray[T], error) {
	return NewBigArrayFromSeed[T](nil, cfg)
}

// NewBigArrayFromSeed creates a BigArray pre-populated with seed.
func NewBigArrayFromSeed[T any](seed []T, cfg Config) (*BigArray[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	blocks, err := NewBlockCollectionFromSeed[T](seed, cfg.DefaultBlockSize, cfg.MaxBlockSize)
	if err != nil {
		return nil, err
	}
	idx, err := NewArrayMap[T](NopBalancer{}, blocks)
	if err != nil {
		return nil, err
	}
	bookmarkCap := cfg.BookmarkCapacity
	if bookmarkCap == 0 {
		bookmarkCap = 1
	}
	return &BigArray[T]{
		blocks:    blocks,
		index:     idx,
		bookmarks: newBookmarkTable(bookmarkCap),
		length:    len(seed),
	}, nil
}

// Count reports the number of elements currently stored.
func (ba *BigArray[T]) Count() int {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	return ba.length
}

// BlockCount reports the number of blocks currently backing the array.
func (ba *BigArray[T]) BlockCount() int {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	return ba.blocks.Count()
}

// BlockLen reports the element count of the block at chain position i.
func (ba *BigArray[T]) BlockLen(i int) (int, error) {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	b, err := ba.blocks.At(i)
	if err != nil {
		return 0, err
	}
	return b.Len(), nil
}

// At returns the element at global index.
func (ba *BigArray[T]) At(index int) (T, error) {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	var zero T
	if index < 0 || index >= ba.length {
		return zero, outOfRangef("index %d out of range [0,%d)", index, ba.length)
	}
	bi, err := ba.index.BlockInfo(index)
	if err != nil {
		return zero, err
	}
	b, err := ba.blocks.At(bi.IndexOfBlock)
	if err != nil {
		return zero, err
	}
	return b.Get(index - bi.CommonStartIndex)
}

// Set overwrites the element at global index.
func (ba *BigArray[T]) Set(index int, v T) error {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	if index < 0 || index >= ba.length {
		return outOfRangef("index %d out of range [0,%d)", index, ba.length)
	}
	bi, err := ba.index.BlockInfo(index)
	if err != nil {
		return err
	}
	b, err := ba.blocks.At(bi.IndexOfBlock)
	if err != nil {
		return err
	}
	return b.Set(index-bi.CommonStartIndex, v)
}

// locateInsertionPointLocked finds the (block, block-local-offset) pair an
// insertion at global index should land on. index == ba.length (append) is
// addressed at the end of the last block.
func (ba *BigArray[T]) locateInsertionPointLocked(index int) (int, int, error) {
	if index == ba.length {
		blockIdx := ba.blocks.Count() - 1
		b, err := ba.blocks.At(blockIdx)
		if err != nil {
			return 0, 0, err
		}
		return blockIdx, b.Len(), nil
	}
	bi, err := ba.index.BlockInfo(index)
	if err != nil {
		return 0, 0, err
	}
	return bi.IndexOfBlock, index - bi.CommonStartIndex, nil
}

// Insert places v at global index, shifting later elements right. index
// must lie in [0, Count()].
func (ba *BigArray[T]) Insert(index int, v T) error {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	if index < 0 || index > ba.length {
		return outOfRangef("insert index %d out of range [0,%d]", index, ba.length)
	}
	ba.blocks.AddFirstBlockIfThereIsNeeded()

	blockIdx, localIdx, err := ba.locateInsertionPointLocked(index)
	if err != nil {
		return err
	}
	b, err := ba.blocks.At(blockIdx)
	if err != nil {
		return err
	}
	if err := b.InsertAt(localIdx, v); err != nil {
		return err
	}
	if err := ba.blocks.TryToDivideBlock(blockIdx); err != nil {
		return err
	}
	if err := ba.index.DataChanged(blockIdx); err != nil {
		return err
	}
	ba.length++
	return nil
}

// Append inserts v at the end of the array.
func (ba *BigArray[T]) Append(v T) error {
	ba.mu.Lock()
	n := ba.length
	ba.mu.Unlock()
	return ba.Insert(n, v)
}

// Remove deletes the element at global index, shifting later elements
// left. If this empties a block and more than one block remains, the
// emptied block is dropped from the chain.
func (ba *BigArray[T]) Remove(index int) error {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	if index < 0 || index >= ba.length {
		return outOfRangef("remove index %d out of range [0,%d)", index, ba.length)
	}
	bi, err := ba.index.BlockInfo(index)
	if err != nil {
		return err
	}
	b, err := ba.blocks.At(bi.IndexOfBlock)
	if err != nil {
		return err
	}
	if err := b.RemoveAt(index - bi.CommonStartIndex); err != nil {
		return err
	}
	ba.length--

	if b.Len() == 0 && ba.blocks.Count() > 1 {
		if err := ba.blocks.RemoveAt(bi.IndexOfBlock); err != nil {
			return err
		}
		return ba.index.DataChangedAfterBlockRemoving(bi.IndexOfBlock)
	}
	return ba.index.DataChanged(bi.IndexOfBlock)
}

// Range returns a copy of the elements in [index, index+count).
func (ba *BigArray[T]) Range(index, count int) ([]T, error) {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	if count < 0 || index < 0 || index+count > ba.length {
		return nil, outOfRangef("range [%d,%d) out of bounds [0,%d)", index, index+count, ba.length)
	}
	mbr, err := ba.index.MultiBlockRange(Range{Index: index, Count: count})
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, count)
	blockIdx := mbr.IndexOfStartBlock
	for _, br := range mbr.Ranges {
		b, err := ba.blocks.At(blockIdx)
		if err != nil {
			return nil, err
		}
		for i := br.Subindex; i < br.Subindex+br.Count; i++ {
			v, err := b.Get(i)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		blockIdx++
	}
	return out, nil
}

// All enumerates every element in order.
func (ba *BigArray[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		ba.mu.Lock()
		defer ba.mu.Unlock()
		for b := range ba.blocks.All() {
			for _, v := range b.Slice() {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Where lazily filters seq, a LINQ-style helper usable with BigArray.All()
// or any other iter.Seq.
func Where[T any](seq iter.Seq[T], pred func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if pred(v) && !yield(v) {
				return
			}
		}
	}
}

// Select lazily maps seq through f, a LINQ-style helper usable with
// BigArray.All() or any other iter.Seq.
func Select[T, R any](seq iter.Seq[T], f func(T) R) iter.Seq[R] {
	return func(yield func(R) bool) {
		for v := range seq {
			if !yield(f(v)) {
				return
			}
		}
	}
}

// SetBookmark names global index with label, so it can be re-resolved
// later even after further mutation (the caller is responsible for
// updating or clearing bookmarks that mutation has invalidated).
func (ba *BigArray[T]) SetBookmark(label string, index int) error {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	if index < 0 || index >= ba.length {
		return outOfRangef("bookmark index %d out of range [0,%d)", index, ba.length)
	}
	var key bookmarkKey
	key.fromString(label)
	return ba.bookmarks.Put(key, index)
}

// ResolveBookmark returns the index last associated with label.
func (ba *BigArray[T]) ResolveBookmark(label string) (int, bool) {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	var key bookmarkKey
	key.fromString(label)
	v, ok := ba.bookmarks.Get(key)
	if !ok {
		return 0, false
	}
	return *v, true
}

// DeleteBookmark removes label, if present.
func (ba *BigArray[T]) DeleteBookmark(label string) {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	var key bookmarkKey
	key.fromString(label)
	ba.bookmarks.Delete(key)
}

// BookmarkInfo reports load and tombstone factors for the bookmark table,
// and whether a Rehash or Grow is advisable.
func (ba *BigArray[T]) BookmarkInfo() BookmarkTableInfo {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	return ba.bookmarks.CollectInfo()
}

// CompactBookmarks removes tombstoned bookmark slots in place. Callers
// typically run this when BookmarkInfo().RecommendRehash is true.
func (ba *BigArray[T]) CompactBookmarks() error {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	return ba.bookmarks.Rehash()
}

// GrowBookmarks extends the bookmark table to hold at least capacity
// entries. Callers typically run this when BookmarkInfo().RecommendGrow is
// true.
func (ba *BigArray[T]) GrowBookmarks(capacity uint64) error {
	ba.mu.Lock()
	defer ba.mu.Unlock()
	return ba.bookmarks.Grow(capacity)
}

// BookmarkIndices enumerates every live bookmark's resolved index. Labels
// themselves are not recoverable from iteration: the table stores only
// their hash, never the original text.
func (ba *BigArray[T]) BookmarkIndices() iter.Seq[int] {
	return func(yield func(int) bool) {
		ba.mu.Lock()
		defer ba.mu.Unlock()
		for _, v := range ba.bookmarks.Iter() {
			if !yield(*v) {
				return
			}
		}
	}
}
