package bigio

import "iter"

// BlockCollection is an ordered sequence of Blocks with two size policies:
// DefaultBlockSize (the target size for freshly split blocks) and
// MaxBlockSize (the hard upper bound TryToDivideBlock enforces on demand).
// It never holds a nil block reference, and bulk add/insert operations
// never produce an empty block — only AddNewBlock/InsertNewBlock do that
// explicitly.
//
// BlockCollection is not internally synchronized; the owning facade must
// serialize structural mutation against enumeration and against ArrayMap
// notifications.
type BlockCollection[T any] struct {
	store            BlockStore[T]
	defaultBlockSize int
	maxBlockSize     int
}

func validateSizes(defaultBlockSize, maxBlockSize int) error {
	if defaultBlockSize < 0 {
		return outOfRangef("DefaultBlockSize %d must be >= 0", defaultBlockSize)
	}
	if maxBlockSize < 0 {
		return outOfRangef("MaxBlockSize %d must be >= 0", maxBlockSize)
	}
	if defaultBlockSize > maxBlockSize {
		return contractViolationf("DefaultBlockSize %d must be <= MaxBlockSize %d", defaultBlockSize, maxBlockSize)
	}
	return nil
}

// NewBlockCollection creates an empty collection using package-level
// default size policy.
func NewBlockCollection[T any]() *BlockCollection[T] {
	bc, err := NewBlockCollectionWithSizes[T](DefaultBlockSize, DefaultBlockSize*2)
	if err != nil {
		// DefaultBlockSize*2 >= DefaultBlockSize always holds; unreachable.
		panic(err)
	}
	return bc
}

// NewBlockCollectionWithSizes creates an empty collection with explicit
// size policy.
func NewBlockCollectionWithSizes[T any](defaultBlockSize, maxBlockSize int) (*BlockCollection[T], error) {
	return NewBlockCollectionWithStore[T](newSliceBlockStore[T](), defaultBlockSize, maxBlockSize)
}

// NewBlockCollectionFromSeed creates a collection pre-populated from seed,
// split into blocks of defaultBlockSize per the standard splitting policy.
func NewBlockCollectionFromSeed[T any](seed []T, defaultBlockSize, maxBlockSize int) (*BlockCollection[T], error) {
	return NewBlockCollectionWithStoreFromSeed[T](newSliceBlockStore[T](), seed, defaultBlockSize, maxBlockSize)
}

// NewBlockCollectionWithStore creates an empty collection backed by a
// caller-supplied BlockStore instead of the default flat vector.
func NewBlockCollectionWithStore[T any](store BlockStore[T], defaultBlockSize, maxBlockSize int) (*BlockCollection[T], error) {
	if store == nil {
		return nil, contractViolationf("block store must not be nil")
	}
	if err := validateSizes(defaultBlockSize, maxBlockSize); err != nil {
		return nil, err
	}
	return &BlockCollection[T]{store: store, defaultBlockSize: defaultBlockSize, maxBlockSize: maxBlockSize}, nil
}

// NewBlockCollectionWithStoreFromSeed combines NewBlockCollectionWithStore
// and NewBlockCollectionFromSeed.
func NewBlockCollectionWithStoreFromSeed[T any](store BlockStore[T], seed []T, defaultBlockSize, maxBlockSize int) (*BlockCollection[T], error) {
	bc, err := NewBlockCollectionWithStore[T](store, defaultBlockSize, maxBlockSize)
	if err != nil {
		return nil, err
	}
	if err := bc.Add(seed); err != nil {
		return nil, err
	}
	return bc, nil
}

// splitIntoBlocks implements the splitting policy of §4.1: content of
// length n becomes ceil(n/defaultBlockSize) blocks, the last possibly
// shorter, every block allocated with capacity hint defaultBlockSize. An
// empty (or nil) content yields no blocks. A non-positive defaultBlockSize
// cannot subdivide content, so the whole of it becomes a single block.
func splitIntoBlocks[T any](content []T, defaultBlockSize int) []*Block[T] {
	n := len(content)
	if n == 0 {
		return nil
	}
	size := defaultBlockSize
	if size <= 0 {
		size = n
	}
	k := (n + size - 1) / size
	blocks := make([]*Block[T], 0, k)
	start := 0
	for i := 0; i < k; i++ {
		end := start + size
		if i == k-1 || end > n {
			end = n
		}
		blocks = append(blocks, NewBlockFrom(content[start:end], defaultBlockSize))
		start = end
	}
	return blocks
}

// Count returns the number of blocks in the chain.
func (bc *BlockCollection[T]) Count() int {
	return bc.store.Count()
}

// DefaultBlockSize returns the current target size for freshly split
// blocks.
func (bc *BlockCollection[T]) DefaultBlockSize() int {
	return bc.defaultBlockSize
}

// SetDefaultBlockSize updates the target size; v must be in
// [0, MaxBlockSize].
func (bc *BlockCollection[T]) SetDefaultBlockSize(v int) error {
	if v < 0 {
		return outOfRangef("DefaultBlockSize %d must be >= 0", v)
	}
	if v > bc.maxBlockSize {
		return contractViolationf("DefaultBlockSize %d must be <= MaxBlockSize %d", v, bc.maxBlockSize)
	}
	bc.defaultBlockSize = v
	return nil
}

// MaxBlockSize returns the hard upper bound on any single block's length.
func (bc *BlockCollection[T]) MaxBlockSize() int {
	return bc.maxBlockSize
}

// SetMaxBlockSize updates the upper bound; v must be >= DefaultBlockSize.
func (bc *BlockCollection[T]) SetMaxBlockSize(v int) error {
	if v < 0 {
		return outOfRangef("MaxBlockSize %d must be >= 0", v)
	}
	if v < bc.defaultBlockSize {
		return contractViolationf("MaxBlockSize %d must be >= DefaultBlockSize %d", v, bc.defaultBlockSize)
	}
	bc.maxBlockSize = v
	return nil
}

// IsReadOnly always reports false; BlockCollection is always mutable.
func (bc *BlockCollection[T]) IsReadOnly() bool {
	return false
}

// At returns the block at position i in the chain (the read-only indexer).
func (bc *BlockCollection[T]) At(i int) (*Block[T], error) {
	return bc.store.At(i)
}

// Add splits content per policy and appends the resulting blocks. Empty
// content adds nothing.
func (bc *BlockCollection[T]) Add(content []T) error {
	bc.store.AddRange(splitIntoBlocks(content, bc.defaultBlockSize))
	return nil
}

// AddNewBlock appends a single empty block with capacity hint
// DefaultBlockSize, bypassing the splitting policy.
func (bc *BlockCollection[T]) AddNewBlock() {
	bc.store.Add(NewBlock[T](bc.defaultBlockSize))
}

// AddRange splits each chunk in chunks per policy and appends the results
// in order. A nil chunk is a contract violation; an empty (non-nil) chunk
// contributes nothing.
func (bc *BlockCollection[T]) AddRange(chunks [][]T) error {
	for _, c := range chunks {
		if c == nil {
			return contractViolationf("AddRange received a nil content chunk")
		}
	}
	for _, c := range chunks {
		bc.store.AddRange(splitIntoBlocks(c, bc.defaultBlockSize))
	}
	return nil
}

// Insert splits content per policy and inserts the resulting blocks
// starting at index, which must lie in [0, Count()]. Empty content is a
// no-op.
func (bc *BlockCollection[T]) Insert(index int, content []T) error {
	if index < 0 || index > bc.Count() {
		return outOfRangef("insert index %d out of range [0,%d]", index, bc.Count())
	}
	blocks := splitIntoBlocks(content, bc.defaultBlockSize)
	if len(blocks) == 0 {
		return nil
	}
	return bc.store.InsertRange(index, blocks)
}

// InsertNewBlock inserts a single empty block at index, which must lie in
// [0, Count()].
func (bc *BlockCollection[T]) InsertNewBlock(index int) error {
	if index < 0 || index > bc.Count() {
		return outOfRangef("insert index %d out of range [0,%d]", index, bc.Count())
	}
	return bc.store.Insert(index, NewBlock[T](bc.defaultBlockSize))
}

// InsertRange splits each chunk in chunks per policy, concatenates the
// results, and inserts them as one contiguous group at index. A nil chunk
// is a contract violation; an empty overall concatenation is a no-op.
func (bc *BlockCollection[T]) InsertRange(index int, chunks [][]T) error {
	if index < 0 || index > bc.Count() {
		return outOfRangef("insert index %d out of range [0,%d]", index, bc.Count())
	}
	for _, c := range chunks {
		if c == nil {
			return contractViolationf("InsertRange received a nil content chunk")
		}
	}
	var concat []*Block[T]
	for _, c := range chunks {
		concat = append(concat, splitIntoBlocks(c, bc.defaultBlockSize)...)
	}
	if len(concat) == 0 {
		return nil
	}
	return bc.store.InsertRange(index, concat)
}

// Remove removes the first occurrence of block (by reference) from the
// chain, reporting whether it was found.
func (bc *BlockCollection[T]) Remove(block *Block[T]) bool {
	return bc.store.Remove(block)
}

// RemoveAt removes the block at position index.
func (bc *BlockCollection[T]) RemoveAt(index int) error {
	return bc.store.RemoveAt(index)
}

// Clear removes every block from the chain.
func (bc *BlockCollection[T]) Clear() {
	bc.store.Clear()
}

// Reverse reverses block order in place. Per-block element order is
// unchanged: whether this amounts to a true sequence reversal depends on
// the caller also reversing within each block.
func (bc *BlockCollection[T]) Reverse() {
	bc.store.Reverse()
}

// TryToDivideBlock splits the block at index in place if its length has
// reached MaxBlockSize; otherwise it is a no-op.
func (bc *BlockCollection[T]) TryToDivideBlock(index int) error {
	b, err := bc.store.At(index)
	if err != nil {
		return err
	}
	if b.Len() < bc.maxBlockSize {
		return nil
	}
	content := make([]T, b.Len())
	b.CopyTo(content)
	replacement := splitIntoBlocks(content, bc.defaultBlockSize)
	if err := bc.store.RemoveAt(index); err != nil {
		return err
	}
	return bc.store.InsertRange(index, replacement)
}

// AddFirstBlockIfThereIsNeeded ensures the chain holds at least one
// (possibly empty) block.
func (bc *BlockCollection[T]) AddFirstBlockIfThereIsNeeded() {
	if bc.Count() == 0 {
		bc.AddNewBlock()
	}
}

// appendRawBlock appends a single block built verbatim from items,
// bypassing the splitting policy. Used by the deserializer to reconstruct
// a chain with its original block boundaries.
func (bc *BlockCollection[T]) appendRawBlock(items []T) {
	bc.store.Add(NewBlockFrom(items, len(items)))
}

// All enumerates the chain's blocks in order. It is acceptable for the
// enumerator to observe block-chain mutations with undefined behavior; the
// surrounding facade is expected to serialize structural mutation against
// enumeration.
func (bc *BlockCollection[T]) All() iter.Seq[*Block[T]] {
	return func(yield func(*Block[T]) bool) {
		for i := 0; i < bc.store.Count(); i++ {
			b, err := bc.store.At(i)
			if err != nil {
				return
			}
			if !yield(b) {
				return
			}
		}
	}
}
