package bigio

// Config is the default-values surface a BigArray is built from: the size
// policy handed to its BlockCollection plus a capacity hint for its
// bookmark table.
type Config struct {
	// DefaultBlockSize is the target size for freshly split blocks.
	DefaultBlockSize int

	// MaxBlockSize is the hard upper bound TryToDivideBlock enforces.
	MaxBlockSize int

	// BookmarkCapacity sizes the initial bookmark hash table. The table does
	// not grow on its own; BigArray.GrowBookmarks extends it.
	BookmarkCapacity uint64
}

// DefaultConfig returns a Config using the package-level default block
// size, a max block size double that, and room for 16 bookmarks before the
// table needs to grow.
func DefaultConfig() Config {
	return Config{
		DefaultBlockSize: DefaultBlockSize,
		MaxBlockSize:     DefaultBlockSize * 2,
		BookmarkCapacity: 16,
	}
}

// Validate reports whether the configured size policy is acceptable to a
// BlockCollection.
func (c Config) Validate() error {
	return validateSizes(c.DefaultBlockSize, c.MaxBlockSize)
}
