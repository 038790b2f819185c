package bigio

import (
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// WriteTo serializes the array's block chain verbatim: a small header
// (block count, element count), then each block's length followed by its
// raw memory, then an xxHash checksum over every byte written after the
// header. T must have a fixed in-memory layout with no pointers. Bookmarks
// are not part of this snapshot; see BookmarkTable.
func (ba *BigArray[T]) WriteTo(w io.Writer) (int64, error) {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	var total int64
	hasher := xxhash.New()

	header := make([]byte, 16)
	binary.LittleEndian.PutUint64(header[0:8], uint64(ba.blocks.Count()))
	binary.LittleEndian.PutUint64(header[8:16], uint64(ba.length))
	n, err := w.Write(header)
	total += int64(n)
	if err != nil {
		return total, err
	}

	lenBuf := make([]byte, 8)
	for b := range ba.blocks.All() {
		items := b.Slice()

		binary.LittleEndian.PutUint64(lenBuf, uint64(len(items)))
		n, err := w.Write(lenBuf)
		total += int64(n)
		if err != nil {
			return total, err
		}
		hasher.Write(lenBuf)

		if len(items) == 0 {
			continue
		}
		raw := rawBytesOf(items)
		n, err = w.Write(raw)
		total += int64(n)
		if err != nil {
			return total, err
		}
		hasher.Write(raw)
	}

	checksum := make([]byte, 8)
	binary.LittleEndian.PutUint64(checksum, hasher.Sum64())
	n, err = w.Write(checksum)
	total += int64(n)
	return total, err
}

// ReadFrom replaces the array's contents with a chain previously written
// by WriteTo, preserving the original block boundaries exactly and
// rejecting input whose checksum does not match.
func (ba *BigArray[T]) ReadFrom(r io.Reader) (int64, error) {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	var total int64
	hasher := xxhash.New()

	header := make([]byte, 16)
	n, err := io.ReadFull(r, header)
	total += int64(n)
	if err != nil {
		return total, err
	}
	blockCount := binary.LittleEndian.Uint64(header[0:8])
	length := binary.LittleEndian.Uint64(header[8:16])

	newBlocks, err := NewBlockCollectionWithSizes[T](ba.blocks.DefaultBlockSize(), ba.blocks.MaxBlockSize())
	if err != nil {
		return total, err
	}

	lenBuf := make([]byte, 8)
	for i := uint64(0); i < blockCount; i++ {
		n, err := io.ReadFull(r, lenBuf)
		total += int64(n)
		if err != nil {
			return total, err
		}
		hasher.Write(lenBuf)
		blen := binary.LittleEndian.Uint64(lenBuf)

		items := make([]T, blen)
		if blen > 0 {
			raw := rawBytesOf(items)
			n, err = io.ReadFull(r, raw)
			total += int64(n)
			if err != nil {
				return total, err
			}
			hasher.Write(raw)
		}
		newBlocks.appendRawBlock(items)
	}

	checksumBuf := make([]byte, 8)
	n, err = io.ReadFull(r, checksumBuf)
	total += int64(n)
	if err != nil {
		return total, err
	}
	if binary.LittleEndian.Uint64(checksumBuf) != hasher.Sum64() {
		return total, contractViolationf("checksum mismatch reading serialized big array")
	}

	idx, err := NewArrayMap[T](NopBalancer{}, newBlocks)
	if err != nil {
		return total, err
	}
	ba.blocks = newBlocks
	ba.index = idx
	ba.length = int(length)
	return total, nil
}

// rawBytesOf reinterprets items' backing array as raw bytes via unsafe.Slice.
func rawBytesOf[T any](items []T) []byte {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(items) == 0 || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&items[0])), size*len(items))
}
