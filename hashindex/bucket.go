package hashindex

import "encoding/binary"

const bucketCountOffset = 0
const bucketBitmapOffset = 4

// bucketCapacity returns how many fixed-size entries fit in one
// bucket page alongside a count header and a readability bitmap,
// solving for the largest capacity that still fits in pageSize bytes.
// Grounded on HASH_TABLE_BUCKET_TYPE's BUCKET_ARRAY_SIZE computation
// in _examples/original_source/src/storage/page/hash_table_bucket_page.h,
// generalized to an arbitrary entry size instead of a fixed template
// instantiation.
func bucketCapacity(pageSize, entrySize int) int {
	capacity := (pageSize - bucketBitmapOffset) / entrySize
	for capacity > 0 {
		bitmapBytes := (capacity + 7) / 8
		if bucketBitmapOffset+bitmapBytes+capacity*entrySize <= pageSize {
			return capacity
		}
		capacity--
	}
	return 0
}

// bucketPage is a typed view over a bucket page's raw bytes: a live
// count, a readability bitmap, and a flat array of entrySize-byte
// slots. Unlike the source this port replaces the occupied_/
// readable_ two-bitmap scheme (whose IsOccupied/IsReadable compare
// `& MASK` to 1 instead of != 0, so every bit above position 0 reads
// as unset) with a single readable bitmap, since tombstone-vs-never-
// used distinction only existed there to bound a linear scan that
// this port always does up to capacity anyway.
type bucketPage struct {
	data       []byte
	capacity   int
	keySize    int
	valueSize  int
	entrySize  int
}

func newBucketView(data []byte, keySize, valueSize int) bucketPage {
	entrySize := keySize + valueSize
	return bucketPage{
		data:      data,
		capacity:  bucketCapacity(len(data), entrySize),
		keySize:   keySize,
		valueSize: valueSize,
		entrySize: entrySize,
	}
}

func (b bucketPage) bitmapOffset() int { return bucketBitmapOffset }
func (b bucketPage) entriesOffset() int {
	return bucketBitmapOffset + (b.capacity+7)/8
}

func (b bucketPage) count() uint32 {
	return binary.LittleEndian.Uint32(b.data[bucketCountOffset:])
}

func (b bucketPage) setCount(n uint32) {
	binary.LittleEndian.PutUint32(b.data[bucketCountOffset:], n)
}

func (b bucketPage) isReadable(idx int) bool {
	byteIdx := b.bitmapOffset() + idx/8
	return b.data[byteIdx]&(1<<uint(idx%8)) != 0
}

func (b bucketPage) setReadable(idx int) {
	byteIdx := b.bitmapOffset() + idx/8
	b.data[byteIdx] |= 1 << uint(idx%8)
}

func (b bucketPage) clearReadable(idx int) {
	byteIdx := b.bitmapOffset() + idx/8
	b.data[byteIdx] &^= 1 << uint(idx%8)
}

func (b bucketPage) entryAt(idx int) []byte {
	off := b.entriesOffset() + idx*b.entrySize
	return b.data[off : off+b.entrySize]
}

func (b bucketPage) keyAt(idx int) []byte   { return b.entryAt(idx)[:b.keySize] }
func (b bucketPage) valueAt(idx int) []byte { return b.entryAt(idx)[b.keySize:] }

func (b bucketPage) isFull() bool  { return int(b.count()) == b.capacity }
func (b bucketPage) isEmpty() bool { return b.count() == 0 }

// insertAt writes key/value into slot idx and marks it readable,
// updating the count. The caller must have verified idx is vacant.
func (b bucketPage) insertAt(idx int, key, value []byte) {
	entry := b.entryAt(idx)
	copy(entry[:b.keySize], key)
	copy(entry[b.keySize:], value)
	b.setReadable(idx)
	b.setCount(b.count() + 1)
}

// removeAt clears slot idx, updating the count. The caller must have
// verified idx is currently readable.
func (b bucketPage) removeAt(idx int) {
	b.clearReadable(idx)
	b.setCount(b.count() - 1)
}

// firstVacant returns the lowest vacant slot index, or -1 if full.
func (b bucketPage) firstVacant() int {
	for i := 0; i < b.capacity; i++ {
		if !b.isReadable(i) {
			return i
		}
	}
	return -1
}
