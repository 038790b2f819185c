package bigio

import (
	"math"
	"sync"
)

// ArrayMap translates an element's global index into the block that holds
// it, and projects global ranges onto the blocks they touch. It lazily
// builds and maintains a prefix-sum cache (blocksInfoList) over its
// BlockCollection, driven by DataChanged/DataChangedAfterBlockRemoving
// notifications from whichever facade mutates the collection.
//
// Every public operation, including reads, acquires mu for its entire
// duration; the lock is not required to be re-entrant, so no public
// operation may call another on the same instance.
type ArrayMap[T any] struct {
	mu              sync.Mutex
	balancer        Balancer
	blockCollection *BlockCollection[T]

	blocksInfoList           []BlockInfo
	indexOfFirstChangedBlock int
	cachedCountInfo          CachedCountInfo
}

// NewArrayMap constructs a map over blockCollection. balancer is accepted
// and stored for future size-policy extensions but is not consulted by any
// algorithm here; a nil balancer is replaced by NopBalancer. If
// blockCollection is already non-empty, the map starts out fully dirty.
func NewArrayMap[T any](balancer Balancer, blockCollection *BlockCollection[T]) (*ArrayMap[T], error) {
	if blockCollection == nil {
		return nil, contractViolationf("block collection must not be nil")
	}
	if balancer == nil {
		balancer = NopBalancer{}
	}
	m := &ArrayMap[T]{
		balancer:                 balancer,
		blockCollection:          blockCollection,
		indexOfFirstChangedBlock: noChanges,
		cachedCountInfo:          CachedCountInfo{CachedIndexOfFirstChangedBlock: invalidCount},
	}
	if blockCollection.Count() > 0 {
		m.indexOfFirstChangedBlock = 0
	}
	return m, nil
}

// BlockCollection returns the owning collection this map indexes.
func (m *ArrayMap[T]) BlockCollection() *BlockCollection[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockCollection
}

func effectiveFirstChanged(v int) int {
	if v == noChanges {
		return math.MaxInt
	}
	return v
}

func (m *ArrayMap[T]) getCachedBlockCountLocked() int {
	if m.indexOfFirstChangedBlock == noChanges {
		return len(m.blocksInfoList)
	}
	return m.indexOfFirstChangedBlock
}

// GetCachedBlockCount returns the length of the currently valid prefix of
// the block info cache.
func (m *ArrayMap[T]) GetCachedBlockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCachedBlockCountLocked()
}

func (m *ArrayMap[T]) getCachedElementCountLocked() int {
	if m.cachedCountInfo.CachedIndexOfFirstChangedBlock == m.indexOfFirstChangedBlock {
		return m.cachedCountInfo.CachedCount
	}

	var count int
	switch {
	case m.indexOfFirstChangedBlock == noChanges:
		if m.blockCollection.Count() == 0 {
			count = 0
		} else {
			last := m.blocksInfoList[len(m.blocksInfoList)-1]
			count = last.CommonStartIndex + last.Count
		}
	case m.indexOfFirstChangedBlock == 0:
		count = 0
	default:
		e := m.blocksInfoList[m.indexOfFirstChangedBlock-1]
		count = e.CommonStartIndex + e.Count
	}

	m.cachedCountInfo = CachedCountInfo{CachedIndexOfFirstChangedBlock: m.indexOfFirstChangedBlock, CachedCount: count}
	return count
}

// GetCachedElementCount returns the number of globally addressable elements
// covered by the currently valid prefix of the block info cache.
func (m *ArrayMap[T]) GetCachedElementCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCachedElementCountLocked()
}

func validateSearchWindow(window Range, blockCount int) error {
	if window.Count < 0 || window.Index < 0 || window.Index+window.Count > blockCount {
		return outOfRangef("search block range %+v out of bounds [0,%d)", window, blockCount)
	}
	return nil
}

// BlockInfo returns the BlockInfo describing the block that contains global
// index.
func (m *ArrayMap[T]) BlockInfo(index int) (BlockInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockInfoLocked(index, Range{Index: 0, Count: m.blockCollection.Count()})
}

// BlockInfoFrom returns the BlockInfo for index, narrowing the search to
// block positions [startBlockIndex, Count()). The narrowing is a
// performance hint, not a semantic change: if index does not fall inside
// the resulting window, the call fails.
func (m *ArrayMap[T]) BlockInfoFrom(index int, startBlockIndex int) (BlockInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockInfoLocked(index, Range{Index: startBlockIndex, Count: m.blockCollection.Count() - startBlockIndex})
}

// BlockInfoInRange returns the BlockInfo for index, narrowing the search to
// the given block-index window.
func (m *ArrayMap[T]) BlockInfoInRange(index int, searchBlockRange Range) (BlockInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockInfoLocked(index, searchBlockRange)
}

func (m *ArrayMap[T]) blockInfoLocked(index int, searchBlockRange Range) (BlockInfo, error) {
	if err := validateSearchWindow(searchBlockRange, m.blockCollection.Count()); err != nil {
		return BlockInfo{}, err
	}
	if index < m.getCachedElementCountLocked() {
		return m.interpolationSearchLocked(index, searchBlockRange)
	}
	return m.linearScanLocked(index, searchBlockRange)
}

// interpolationSearchLocked implements §4.2.3: a binary/interpolation
// search confined to the valid cache prefix.
func (m *ArrayMap[T]) interpolationSearchLocked(index int, searchBlockRange Range) (BlockInfo, error) {
	cachedBlockCount := m.getCachedBlockCountLocked()

	lo := searchBlockRange.Index
	hi := searchBlockRange.Index + searchBlockRange.Count - 1
	if hi > cachedBlockCount-1 {
		hi = cachedBlockCount - 1
	}
	if lo < 0 {
		lo = 0
	}

	first := true
	for lo <= hi {
		s := m.blocksInfoList[lo]
		e := m.blocksInfoList[hi]
		startIdx := s.CommonStartIndex
		endIdx := e.CommonStartIndex + e.Count - 1

		if first {
			if index < startIdx || index > endIdx {
				return BlockInfo{}, outOfRangef("index %d outside cached window [%d,%d]", index, startIdx, endIdx)
			}
			first = false
		}

		var probe int
		if index == s.CommonStartIndex {
			probe = s.IndexOfBlock
		} else {
			probe = lo + int(float64(index-startIdx)*float64(e.IndexOfBlock-s.IndexOfBlock+1)/float64(endIdx-startIdx+1))
		}
		if probe < lo {
			probe = lo
		}
		if probe > hi {
			probe = hi
		}

		b := m.blocksInfoList[probe]
		switch {
		case index < b.CommonStartIndex:
			hi = probe - 1
		case index >= b.CommonStartIndex+b.Count:
			lo = probe + 1
		default:
			return b, nil
		}
	}

	return BlockInfo{}, invariantViolationf("interpolation search terminated without a match for index %d", index)
}

// startBlockInfoForLinearLocked implements GetStartBlockInfoForLinear
// (§4.2.4 step 1): it drops the obsolete cache tail and returns a starting
// point for the scan, seeding the cache with block 0 if it was empty.
func (m *ArrayMap[T]) startBlockInfoForLinearLocked() (BlockInfo, error) {
	if m.indexOfFirstChangedBlock != noChanges {
		n := m.indexOfFirstChangedBlock
		if n > len(m.blocksInfoList) {
			n = len(m.blocksInfoList)
		}
		m.blocksInfoList = m.blocksInfoList[:n]
	}

	if len(m.blocksInfoList) == 0 {
		collCount := m.blockCollection.Count()
		if collCount == 0 {
			return BlockInfo{}, outOfRangef("no blocks available to scan")
		}
		b, err := m.blockCollection.At(0)
		if err != nil {
			return BlockInfo{}, err
		}
		entry := BlockInfo{IndexOfBlock: 0, CommonStartIndex: 0, Count: b.Len()}
		m.blocksInfoList = append(m.blocksInfoList, entry)
		if collCount == 1 {
			m.indexOfFirstChangedBlock = noChanges
		} else {
			m.indexOfFirstChangedBlock = 1
		}
		m.cachedCountInfo.CachedIndexOfFirstChangedBlock = invalidCount
		return entry, nil
	}

	return m.blocksInfoList[len(m.blocksInfoList)-1], nil
}

// linearScanLocked implements §4.2.4: a linear scan over uncached blocks
// that appends freshly computed BlockInfo entries to the cache as it goes.
func (m *ArrayMap[T]) linearScanLocked(index int, searchBlockRange Range) (BlockInfo, error) {
	start, err := m.startBlockInfoForLinearLocked()
	if err != nil {
		return BlockInfo{}, err
	}
	if start.CommonStartIndex <= index && index < start.CommonStartIndex+start.Count {
		if start.IndexOfBlock < searchBlockRange.Index {
			return BlockInfo{}, outOfRangef("index %d lies in block %d, before search window start %d", index, start.IndexOfBlock, searchBlockRange.Index)
		}
		return start, nil
	}

	limit := searchBlockRange.Index + searchBlockRange.Count - 1
	collCount := m.blockCollection.Count()
	commonStartIndex := start.CommonStartIndex + start.Count

	for i := start.IndexOfBlock + 1; i <= limit; i++ {
		b, err := m.blockCollection.At(i)
		if err != nil {
			return BlockInfo{}, err
		}
		length := b.Len()
		entry := BlockInfo{IndexOfBlock: i, CommonStartIndex: commonStartIndex, Count: length}
		m.blocksInfoList = append(m.blocksInfoList, entry)

		if commonStartIndex <= index && index < commonStartIndex+length {
			if i == collCount-1 {
				m.indexOfFirstChangedBlock = noChanges
			} else {
				m.indexOfFirstChangedBlock = i + 1
			}
			m.cachedCountInfo.CachedIndexOfFirstChangedBlock = invalidCount
			if i < searchBlockRange.Index {
				return BlockInfo{}, outOfRangef("index %d lies in block %d, before search window start %d", index, i, searchBlockRange.Index)
			}
			return entry, nil
		}
		commonStartIndex += length
	}

	return BlockInfo{}, outOfRangef("index %d not found scanning blocks up to %d", index, limit)
}

// MultiBlockRange projects the global range calcRange onto the block
// chain, returning one BlockRange per touched block in forward order.
func (m *ArrayMap[T]) MultiBlockRange(calcRange Range) (MultiBlockRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.multiBlockRangeLocked(calcRange)
}

func (m *ArrayMap[T]) multiBlockRangeLocked(calcRange Range) (MultiBlockRange, error) {
	if calcRange.Count == 0 {
		if calcRange.Index == 0 {
			return MultiBlockRange{IndexOfStartBlock: 0, Count: 0}, nil
		}
		bi, err := m.blockInfoLocked(calcRange.Index, Range{Index: 0, Count: m.blockCollection.Count()})
		if err != nil {
			return MultiBlockRange{}, err
		}
		return MultiBlockRange{IndexOfStartBlock: bi.CommonStartIndex, Count: 0}, nil
	}

	collCount := m.blockCollection.Count()
	startInfo, err := m.blockInfoLocked(calcRange.Index, Range{Index: 0, Count: collCount})
	if err != nil {
		return MultiBlockRange{}, err
	}
	endInfo, err := m.blockInfoLocked(calcRange.Index+calcRange.Count-1, Range{Index: startInfo.IndexOfBlock, Count: collCount - startInfo.IndexOfBlock})
	if err != nil {
		return MultiBlockRange{}, err
	}

	endIndex := calcRange.Index + calcRange.Count - 1
	currentStartIndex := startInfo.CommonStartIndex
	ranges := make([]BlockRange, 0, endInfo.IndexOfBlock-startInfo.IndexOfBlock+1)

	for i := startInfo.IndexOfBlock; i <= endInfo.IndexOfBlock; i++ {
		b, err := m.blockCollection.At(i)
		if err != nil {
			return MultiBlockRange{}, err
		}

		startSub := 0
		if i == startInfo.IndexOfBlock {
			startSub = calcRange.Index - currentStartIndex
			if startSub < 0 {
				startSub = 0
			}
		}

		rangeCount := min(b.Len()-startSub, endIndex-currentStartIndex-startSub+1)
		if rangeCount >= 0 {
			ranges = append(ranges, BlockRange{Subindex: startSub, Count: rangeCount, CommonStartIndex: currentStartIndex})
		}

		currentStartIndex += b.Len()
	}

	return MultiBlockRange{IndexOfStartBlock: startInfo.IndexOfBlock, Count: len(ranges), Ranges: ranges}, nil
}

// ReverseMultiBlockRange projects a range walking backward from its last
// (inclusive) element. calcRange.Index names that last element;
// calcRange.Count is the walked length. The emitted BlockRanges are in
// reverse block order, and each Subindex points at the block-local index of
// the last element that block contributes.
func (m *ArrayMap[T]) ReverseMultiBlockRange(calcRange Range) (MultiBlockRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	direct := calcRange.Index - calcRange.Count + 1
	if calcRange.Index == 0 && calcRange.Count == 0 {
		direct = 0
	}

	forward, err := m.multiBlockRangeLocked(Range{Index: direct, Count: calcRange.Count})
	if err != nil {
		return MultiBlockRange{}, err
	}

	reversed := make([]BlockRange, len(forward.Ranges))
	for i, r := range forward.Ranges {
		reversed[len(forward.Ranges)-1-i] = BlockRange{
			Subindex:         r.Subindex + r.Count - 1,
			Count:            r.Count,
			CommonStartIndex: r.CommonStartIndex,
		}
	}

	startBlock := forward.IndexOfStartBlock + forward.Count - 1
	if startBlock < 0 {
		startBlock = 0
	}

	return MultiBlockRange{IndexOfStartBlock: startBlock, Count: forward.Count, Ranges: reversed}, nil
}

// DataChanged marks blockIndex (and, transitively, every later cached
// entry) as stale. blockIndex must be a valid block position; the caller
// guarantees the collection was not mutated past its bounds.
func (m *ArrayMap[T]) DataChanged(blockIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dataChangedLocked(blockIndex)
}

func (m *ArrayMap[T]) dataChangedLocked(blockIndex int) error {
	if blockIndex < 0 || blockIndex >= m.blockCollection.Count() {
		return outOfRangef("DataChanged block index %d out of range [0,%d)", blockIndex, m.blockCollection.Count())
	}
	m.indexOfFirstChangedBlock = min(effectiveFirstChanged(m.indexOfFirstChangedBlock), blockIndex)
	m.cachedCountInfo.CachedIndexOfFirstChangedBlock = invalidCount
	return nil
}

// DataChangedAfterBlockRemoving notifies the map that the block chain
// shrank such that blockIndex is the position a removal took place at. If
// blockIndex now names or exceeds the tail of the collection, the removed
// material is checked against the existing dirty marker before deciding
// whether anything is actually left dirty; otherwise this behaves exactly
// like DataChanged.
func (m *ArrayMap[T]) DataChangedAfterBlockRemoving(blockIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if blockIndex >= m.blockCollection.Count() {
		if effectiveFirstChanged(m.indexOfFirstChangedBlock) >= blockIndex {
			m.indexOfFirstChangedBlock = noChanges
			// The cache may still hold an entry describing the block that
			// was just removed; drop it so GetCachedElementCount and the
			// interpolation search never see a stale tail entry.
			if blockIndex < len(m.blocksInfoList) {
				m.blocksInfoList = m.blocksInfoList[:blockIndex]
			}
		}
		m.cachedCountInfo.CachedIndexOfFirstChangedBlock = invalidCount
		return nil
	}

	return m.dataChangedLocked(blockIndex)
}
