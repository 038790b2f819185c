package bigio

// Range is a half-open logical range [Index, Index+Count) in an array's
// global coordinates.
type Range struct {
	Index int
	Count int
}

// BlockInfo describes one block's position in the chain: it sits at
// IndexOfBlock, its first element carries the global index
// CommonStartIndex, and it holds Count elements.
type BlockInfo struct {
	IndexOfBlock     int
	CommonStartIndex int
	Count            int
}

// BlockRange is a BlockInfo narrowed to the sub-range [Subindex,
// Subindex+Count) of one block's local coordinates. CommonStartIndex is the
// global index of the block's first element, so the sub-range's first
// element sits at global index CommonStartIndex+Subindex.
type BlockRange struct {
	Subindex         int
	Count            int
	CommonStartIndex int
}

// MultiBlockRange is a contiguous global range projected onto the blocks it
// touches, one BlockRange per block, ordered in the direction of the query.
type MultiBlockRange struct {
	IndexOfStartBlock int
	Count             int
	Ranges            []BlockRange
}

// CachedCountInfo memoizes the number of globally addressable elements
// covered by the currently valid prefix of an ArrayMap's block info cache.
type CachedCountInfo struct {
	CachedIndexOfFirstChangedBlock int
	CachedCount                    int
}

const (
	// noChanges marks indexOfFirstChangedBlock when the entire block info
	// cache is current.
	noChanges = -1

	// invalidCount marks cachedCountInfo as stale.
	invalidCount = -2
)
