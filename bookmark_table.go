package bigio

import (
	"container/list"
	"encoding/binary"
	"iter"
	"math/bits"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// bookmarkBlockSize is the number of slots packed into one hash-table
// block, chosen so a block's control bytes fit in a single uint64 and its
// slots can be probed with one SIMD-like compare.
const bookmarkBlockSize = 8

// bookmarkKey is a 16-byte hash of a caller-supplied bookmark label.
// BigArray hashes a label into this fixed-width key before it ever
// reaches BookmarkTable; the table itself never sees or stores the
// original label text, so two distinct labels that somehow hash equal
// are indistinguishable to it.
type bookmarkKey [16]byte

// fromString derives a 16-byte key from label: the label's 64-bit xxHash,
// followed by a mixed copy of that hash. The second half depends only on
// the first, so two labels that share the 64-bit hash get the same key.
func (k *bookmarkKey) fromString(label string) {
	h := xxhash.Sum64([]byte(label))
	binary.LittleEndian.PutUint64(k[0:8], h)

	// 0x9e3779b97f4a7c15 is the golden-ratio constant used by many hashers
	// as a cheap avalanche mixer.
	h2 := h ^ (h >> 33)
	h2 *= 0x9e3779b97f4a7c15
	h2 ^= h2 >> 33
	binary.LittleEndian.PutUint64(k[8:16], h2)
}

// BookmarkTableInfo reports load and tombstone factors for a BookmarkTable,
// and whether a Rehash or Grow is advisable.
type BookmarkTableInfo struct {
	LoadFactor      float32
	TombstoneFactor float32
	RecommendRehash bool
	RecommendGrow   bool
}

// bookmarkBlock holds bookmarkBlockSize slots of (key, global index) pairs
// with SwissTable-style packed control bytes: one byte per slot, 0x00
// empty, 0x01 tombstoned, and the high bit set plus the key's first byte
// otherwise, letting a whole block be probed with one word compare.
type bookmarkBlock struct {
	control uint64
	keys    [bookmarkBlockSize]bookmarkKey
	indices [bookmarkBlockSize]int
}

func (b *bookmarkBlock) controlByte(i int) uint8 {
	return uint8(b.control >> (i * 8))
}

func (b *bookmarkBlock) setControlByte(i int, v uint8) {
	shift := i * 8
	b.control = (b.control &^ (0xFF << shift)) | (uint64(v) << shift)
}

// bookmarkEntry is a live (key, index) pair lifted out of the table during
// Rehash, before its slot is cleared and it is reinserted.
type bookmarkEntry struct {
	key   bookmarkKey
	index int
}

// BookmarkTable is BigArray's label->global-index table: an open-addressing
// hash map with SwissTable-style control bytes, specialized to the one
// value type BigArray ever stores in it.
type BookmarkTable struct {
	blocks []bookmarkBlock
	mask   uint64
}

// bookmarkBlockCount returns the next power of two of blocks needed to
// hold capacity entries.
func bookmarkBlockCount(capacity uint64) uint64 {
	blockCount := (capacity + bookmarkBlockSize - 1) / bookmarkBlockSize
	if blockCount <= 1 {
		blockCount = 1
	} else {
		blockCount = 1 << (64 - bits.LeadingZeros64(blockCount-1))
	}
	return blockCount
}

// newBookmarkTable allocates a table sized to hold at least capacity
// bookmarks before it needs to grow.
func newBookmarkTable(capacity uint64) *BookmarkTable {
	blockCount := bookmarkBlockCount(capacity)
	return &BookmarkTable{
		blocks: make([]bookmarkBlock, blockCount),
		mask:   blockCount - 1,
	}
}

// Capacity returns the maximum number of bookmarks the table can hold
// before Grow is required.
func (t *BookmarkTable) Capacity() uint64 {
	return uint64(len(t.blocks)) * bookmarkBlockSize
}

// Iter enumerates every live bookmark's resolved index. Keys, not the
// original labels, are yielded: the table never stores label text.
func (t *BookmarkTable) Iter() iter.Seq2[bookmarkKey, *int] {
	return func(yield func(bookmarkKey, *int) bool) {
		for bi := range t.blocks {
			block := &t.blocks[bi]
			for i := 0; i < bookmarkBlockSize; i++ {
				ctrl := block.controlByte(i)
				if ctrl != 0x0 && ctrl != 0x1 {
					if !yield(block.keys[i], &block.indices[i]) {
						return
					}
				}
			}
		}
	}
}

func (t *BookmarkTable) blockFor(key bookmarkKey) uint64 {
	return *(*uint64)(unsafe.Pointer(&key[0])) & t.mask
}

// Get resolves key to its stored global index.
func (t *BookmarkTable) Get(key bookmarkKey) (*int, bool) {
	blockIndex := t.blockFor(key)
	tag := key[0] | 0x80

	for {
		block := &t.blocks[blockIndex]
		control := block.control

		target := uint64(tag) * 0x0101010101010101
		match := control ^ target
		result := (match - 0x0101010101010101) & ^match & 0x8080808080808080

		for result != 0 {
			i := bits.TrailingZeros64(result) / 8
			if block.keys[i] == key {
				return &block.indices[i], true
			}
			result &= result - 1
		}

		if (control-0x0101010101010101) & ^control & 0x8080808080808080 != 0x0 {
			return nil, false
		}
		blockIndex = (blockIndex + 1) & t.mask
	}
}

// Put stores index under key, overwriting any prior value for the same
// key.
func (t *BookmarkTable) Put(key bookmarkKey, index int) error {
	blockIndex := t.blockFor(key)
	tag := key[0] | 0x80

	var firstTombstoneBlock *bookmarkBlock
	firstTombstoneIndex := -1

	for {
		block := &t.blocks[blockIndex]
		control := block.control

		target := uint64(tag) * 0x0101010101010101
		match := control ^ target
		result := (match - 0x0101010101010101) & ^match & 0x8080808080808080

		for result != 0 {
			i := bits.TrailingZeros64(result) / 8
			if block.keys[i] == key {
				block.indices[i] = index
				return nil
			}
			result &= result - 1
		}

		for i := 0; i < bookmarkBlockSize; i++ {
			ctrl := block.controlByte(i)
			if ctrl == 0x0 {
				if firstTombstoneBlock != nil {
					firstTombstoneBlock.setControlByte(firstTombstoneIndex, tag)
					firstTombstoneBlock.keys[firstTombstoneIndex] = key
					firstTombstoneBlock.indices[firstTombstoneIndex] = index
					return nil
				}
				block.setControlByte(i, tag)
				block.keys[i] = key
				block.indices[i] = index
				return nil
			}
			if ctrl == 0x1 && firstTombstoneBlock == nil {
				firstTombstoneBlock = block
				firstTombstoneIndex = i
			}
		}

		blockIndex = (blockIndex + 1) & t.mask
		if blockIndex == t.blockFor(key) {
			return invariantViolationf("bookmark table has no empty slots left for insertion")
		}
	}
}

// Delete removes key's bookmark, if present.
func (t *BookmarkTable) Delete(key bookmarkKey) {
	blockIndex := t.blockFor(key)
	tag := key[0] | 0x80

	for {
		block := &t.blocks[blockIndex]
		control := block.control

		target := uint64(tag) * 0x0101010101010101
		match := control ^ target
		result := (match - 0x0101010101010101) & ^match & 0x8080808080808080

		for result != 0 {
			i := bits.TrailingZeros64(result) / 8
			if block.keys[i] == key {
				block.setControlByte(i, 0x1)
				return
			}
			result &= result - 1
		}

		if (control-0x0101010101010101) & ^control & 0x8080808080808080 != 0x0 {
			return
		}
		blockIndex = (blockIndex + 1) & t.mask
	}
}

// CollectInfo reports the table's current load and tombstone factors.
func (t *BookmarkTable) CollectInfo() BookmarkTableInfo {
	var stored, tombstones uint64
	total := t.Capacity()

	for bi := range t.blocks {
		block := &t.blocks[bi]
		for i := 0; i < bookmarkBlockSize; i++ {
			switch block.controlByte(i) {
			case 0x1:
				tombstones++
			case 0x0:
			default:
				stored++
			}
		}
	}

	var load, tombstoneFactor float32
	if total > 0 {
		load = float32(stored) / float32(total)
		tombstoneFactor = float32(tombstones) / float32(total)
	}

	return BookmarkTableInfo{
		LoadFactor:      load,
		TombstoneFactor: tombstoneFactor,
		RecommendGrow:   load >= 0.75,
		RecommendRehash: tombstoneFactor >= 0.20,
	}
}

// Rehash clears tombstones and reinserts every live entry along its
// optimal probe sequence, so a key displaced by a since-deleted collision
// moves back to its ideal block. It collects live entries into a worklist
// first rather than allocating a second full-size table.
func (t *BookmarkTable) Rehash() error {
	live := list.New()
	for bi := range t.blocks {
		block := &t.blocks[bi]
		for i := 0; i < bookmarkBlockSize; i++ {
			if ctrl := block.controlByte(i); ctrl != 0x0 && ctrl != 0x1 {
				live.PushBack(bookmarkEntry{key: block.keys[i], index: block.indices[i]})
			}
			block.setControlByte(i, 0x0)
		}
	}

	for e := live.Front(); e != nil; e = e.Next() {
		ent := e.Value.(bookmarkEntry)
		if err := t.Put(ent.key, ent.index); err != nil {
			return err
		}
	}
	return nil
}

// Grow extends the table to hold at least newCapacity bookmarks. The
// table never shrinks; if newCapacity requires no additional blocks this
// is a no-op. Growing always rehashes, clearing tombstones as a side
// effect.
func (t *BookmarkTable) Grow(newCapacity uint64) error {
	newBlockCount := bookmarkBlockCount(newCapacity)
	currentBlockCount := uint64(len(t.blocks))
	if newBlockCount <= currentBlockCount {
		return nil
	}

	t.blocks = append(t.blocks, make([]bookmarkBlock, newBlockCount-currentBlockCount)...)
	t.mask = newBlockCount - 1
	return t.Rehash()
}
