package hashindex

import (
	"fmt"
	"sync"

	"github.com/dragonbase/storage/pagestore"
)

// Options binds the capability set spec.md §9 re-expresses in place of
// the source's <KeyType, ValueType, KeyComparator> template parameters:
// a hasher, an equality comparator, and fixed-size encodings for keys
// and values. Page layout never depends on key size beyond these.
type Options[K any, V any] struct {
	KeySize   int
	ValueSize int

	Hash  func(key K) uint32
	Equal func(a, b K) bool

	EncodeKey func(K) []byte
	DecodeKey func([]byte) K

	EncodeValue func(V) []byte
	DecodeValue func([]byte) V

	// EqualValue distinguishes duplicate (key, value) pairs on Remove;
	// defaults to byte-equality of EncodeValue's output if nil.
	EqualValue func(a, b V) bool
}

func (o Options[K, V]) equalValue(a, b V) bool {
	if o.EqualValue != nil {
		return o.EqualValue(a, b)
	}
	ea, eb := o.EncodeValue(a), o.EncodeValue(b)
	if len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if ea[i] != eb[i] {
			return false
		}
	}
	return true
}

// DiskExtendibleHashTable is an on-disk extendible hash index built on
// top of a BufferPoolManager, adapted from
// _examples/original_source/src/container/disk/hash/disk_extendible_hash_table.cpp.
// It is a client of the buffer pool, not part of the pool itself
// (spec.md §1): every page it touches is fetched, guarded, and unpinned
// through pagestore's public API.
type DiskExtendibleHashTable[K any, V any] struct {
	bpm             *pagestore.BufferPoolManager
	directoryPageID pagestore.PageID
	opts            Options[K, V]

	// mutex is a table-wide latch guarding directory structure changes
	// (splits and merges), coarser than the source's per-operation
	// table_latch_ + per-page latching but sufficient since every
	// directory/bucket mutation already goes through a page write
	// guard for payload safety.
	mutex sync.RWMutex
}

// New builds an empty hash table: one directory page at global depth 0
// pointing at one bucket page. The source's constructor only
// initializes directory slot 0 despite setting global depth to 1,
// leaving slot 1 dangling; this starts at depth 0 (a single slot
// covering the whole key space) instead, which is well-formed without
// a wasted first split.
func New[K any, V any](bpm *pagestore.BufferPoolManager, opts Options[K, V]) (*DiskExtendibleHashTable[K, V], error) {
	if opts.KeySize+opts.ValueSize <= 0 {
		return nil, fmt.Errorf("hashindex: key size + value size must be positive")
	}

	var directoryPageID pagestore.PageID
	dirGuard, err := bpm.NewPageGuarded(&directoryPageID)
	if err != nil {
		return nil, fmt.Errorf("hashindex: allocate directory page: %w", err)
	}
	dir := newDirectoryView(dirGuard.Data())

	var bucketPageID pagestore.PageID
	bucketGuard, err := bpm.NewPageGuarded(&bucketPageID)
	if err != nil {
		dirGuard.Drop(false)
		return nil, fmt.Errorf("hashindex: allocate root bucket page: %w", err)
	}
	bucketGuard.Drop(true)

	dir.setBucketPageID(0, bucketPageID)
	dir.setLocalDepth(0, 0)
	dirGuard.Drop(true)

	return &DiskExtendibleHashTable[K, V]{
		bpm:             bpm,
		directoryPageID: directoryPageID,
		opts:            opts,
	}, nil
}

func (t *DiskExtendibleHashTable[K, V]) keyToDirectoryIndex(key K, dir directoryPage) uint32 {
	return t.opts.Hash(key) & dir.globalDepthMask()
}

// GetValue returns every value stored under key.
func (t *DiskExtendibleHashTable[K, V]) GetValue(key K) ([]V, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	dirGuard, err := t.bpm.FetchPageRead(t.directoryPageID, pagestore.AccessIndex)
	if err != nil {
		return nil, fmt.Errorf("hashindex: fetch directory: %w", err)
	}
	dir := newDirectoryView(dirGuard.Data())
	bucketPageID := dir.bucketPageID(t.keyToDirectoryIndex(key, dir))
	dirGuard.Done()

	bucketGuard, err := t.bpm.FetchPageRead(bucketPageID, pagestore.AccessIndex)
	if err != nil {
		return nil, fmt.Errorf("hashindex: fetch bucket: %w", err)
	}
	defer bucketGuard.Done()

	bucket := newBucketView(bucketGuard.Data(), t.opts.KeySize, t.opts.ValueSize)
	var results []V
	for i := 0; i < bucket.capacity; i++ {
		if !bucket.isReadable(i) {
			continue
		}
		if t.opts.Equal(t.opts.DecodeKey(bucket.keyAt(i)), key) {
			results = append(results, t.opts.DecodeValue(bucket.valueAt(i)))
		}
	}
	return results, nil
}

// Insert adds (key, value). It returns false without error if the
// exact pair is already present. A full bucket is split — doubling
// the directory if necessary, up to maxGlobalDepth — and the insert
// retried against the (possibly new) owning bucket.
func (t *DiskExtendibleHashTable[K, V]) Insert(key K, value V) (bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for {
		dirGuard, err := t.bpm.FetchPageWrite(t.directoryPageID, pagestore.AccessIndex)
		if err != nil {
			return false, fmt.Errorf("hashindex: fetch directory: %w", err)
		}
		dir := newDirectoryView(dirGuard.Data())
		bucketIdx := t.keyToDirectoryIndex(key, dir)
		bucketPageID := dir.bucketPageID(bucketIdx)

		bucketGuard, err := t.bpm.FetchPageWrite(bucketPageID, pagestore.AccessIndex)
		if err != nil {
			dirGuard.Done()
			return false, fmt.Errorf("hashindex: fetch bucket: %w", err)
		}
		bucket := newBucketView(bucketGuard.Data(), t.opts.KeySize, t.opts.ValueSize)

		if _, found := t.findSlot(bucket, key, &value); found {
			bucketGuard.Done()
			dirGuard.Done()
			return false, nil
		}

		if !bucket.isFull() {
			bucket.insertAt(bucket.firstVacant(), t.opts.EncodeKey(key), t.opts.EncodeValue(value))
			bucketGuard.Done()
			dirGuard.Done()
			return true, nil
		}

		if dir.localDepth(bucketIdx) >= maxGlobalDepth {
			bucketGuard.Done()
			dirGuard.Done()
			return false, ErrIndexFull
		}

		if err := t.splitBucket(dir, bucketIdx, bucket); err != nil {
			bucketGuard.Done()
			dirGuard.Done()
			return false, err
		}
		bucketGuard.Done()
		dirGuard.Done()
		// Retry: the key may now land in the freshly split bucket.
	}
}

// findSlot reports whether (key, *value) is already present. It
// exists only to keep Insert's duplicate check in one place.
func (t *DiskExtendibleHashTable[K, V]) findSlot(bucket bucketPage, key K, value *V) (int, bool) {
	for i := 0; i < bucket.capacity; i++ {
		if !bucket.isReadable(i) {
			continue
		}
		if t.opts.Equal(t.opts.DecodeKey(bucket.keyAt(i)), key) &&
			t.opts.equalValue(t.opts.DecodeValue(bucket.valueAt(i)), *value) {
			return i, true
		}
	}
	return -1, false
}

// splitBucket grows the directory if bucketIdx's local depth has
// reached the global depth (no other slot shares its bucket),
// allocates a sibling bucket, and
// redistributes bucketIdx's entries between the two by the newly
// significant hash bit. Grounded on DiskExtendibleHashTable::
// SplitInsert, fixed to update every directory slot that shares the
// old bucket (the source only special-cases slot 0 in its
// constructor and never exercises more than one doubling in its own
// tests, a gap this closes by scanning the full directory).
func (t *DiskExtendibleHashTable[K, V]) splitBucket(dir directoryPage, bucketIdx uint32, bucket bucketPage) error {
	oldLocalDepth := dir.localDepth(bucketIdx)

	if oldLocalDepth == uint8(dir.globalDepth()) {
		if dir.globalDepth() >= maxGlobalDepth {
			return ErrIndexFull
		}
		prevSize := dir.size()
		dir.incrGlobalDepth()
		for i := uint32(0); i < prevSize; i++ {
			dir.setBucketPageID(i+prevSize, dir.bucketPageID(i))
			dir.setLocalDepth(i+prevSize, dir.localDepth(i))
		}
	}

	var newBucketPageID pagestore.PageID
	newBucketGuard, err := t.bpm.NewPageGuarded(&newBucketPageID)
	if err != nil {
		return fmt.Errorf("hashindex: allocate split bucket: %w", err)
	}
	newBucket := newBucketView(newBucketGuard.Data(), t.opts.KeySize, t.opts.ValueSize)

	newLocalDepth := oldLocalDepth + 1
	oldMask := uint32(1)<<oldLocalDepth - 1
	lowBits := bucketIdx & oldMask
	newBit := uint32(1) << oldLocalDepth

	dirSize := dir.size()
	for i := uint32(0); i < dirSize; i++ {
		if i&oldMask != lowBits {
			continue
		}
		dir.setLocalDepth(i, newLocalDepth)
		if i&newBit != 0 {
			dir.setBucketPageID(i, newBucketPageID)
		}
	}

	for idx := 0; idx < bucket.capacity; idx++ {
		if !bucket.isReadable(idx) {
			continue
		}
		key := t.opts.DecodeKey(bucket.keyAt(idx))
		if t.opts.Hash(key)&newBit != 0 {
			newBucket.insertAt(newBucket.firstVacant(), bucket.keyAt(idx), bucket.valueAt(idx))
			bucket.removeAt(idx)
		}
	}

	newBucketGuard.Drop(true)
	return nil
}

// Remove deletes (key, value) if present. If its bucket becomes empty
// afterward, Remove attempts one level of merge with the bucket's
// split sibling (not cascading further up the split tree — a bounded,
// single-step consolidation, since the source leaves Merge entirely
// unimplemented and spec.md does not mandate cascading).
func (t *DiskExtendibleHashTable[K, V]) Remove(key K, value V) (bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	dirGuard, err := t.bpm.FetchPageWrite(t.directoryPageID, pagestore.AccessIndex)
	if err != nil {
		return false, fmt.Errorf("hashindex: fetch directory: %w", err)
	}
	defer dirGuard.Done()
	dir := newDirectoryView(dirGuard.Data())
	bucketIdx := t.keyToDirectoryIndex(key, dir)
	bucketPageID := dir.bucketPageID(bucketIdx)

	bucketGuard, err := t.bpm.FetchPageWrite(bucketPageID, pagestore.AccessIndex)
	if err != nil {
		return false, fmt.Errorf("hashindex: fetch bucket: %w", err)
	}
	bucket := newBucketView(bucketGuard.Data(), t.opts.KeySize, t.opts.ValueSize)

	idx, found := t.findSlot(bucket, key, &value)
	if !found {
		bucketGuard.Done()
		return false, nil
	}
	bucket.removeAt(idx)

	empty := bucket.isEmpty()
	bucketGuard.Done()

	if empty {
		if err := t.merge(dir, bucketIdx, bucketPageID); err != nil {
			return true, err
		}
	}
	return true, nil
}

// merge reclaims bucketIdx's (now-empty) bucket if its split sibling
// has the same local depth, repointing every directory slot the two
// shared back to the sibling and shrinking the local depth. It does
// not recurse into the sibling's own sibling.
func (t *DiskExtendibleHashTable[K, V]) merge(dir directoryPage, bucketIdx uint32, emptyBucketPageID pagestore.PageID) error {
	localDepth := dir.localDepth(bucketIdx)
	if localDepth == 0 {
		return nil
	}

	siblingIdx := dir.splitImageIndex(bucketIdx)
	if dir.localDepth(siblingIdx) != localDepth {
		return nil
	}
	siblingPageID := dir.bucketPageID(siblingIdx)
	if siblingPageID == emptyBucketPageID {
		return nil
	}

	newLocalDepth := localDepth - 1
	newMask := uint32(1)<<newLocalDepth - 1
	lowBits := bucketIdx & newMask

	dirSize := dir.size()
	for i := uint32(0); i < dirSize; i++ {
		if i&newMask != lowBits {
			continue
		}
		dir.setBucketPageID(i, siblingPageID)
		dir.setLocalDepth(i, newLocalDepth)
	}

	if ok, err := t.bpm.DeletePage(emptyBucketPageID); err != nil {
		return fmt.Errorf("hashindex: delete merged bucket: %w", err)
	} else if !ok {
		return fmt.Errorf("hashindex: merged bucket %d still pinned", emptyBucketPageID)
	}

	if t.canShrinkGlobalDepth(dir) {
		dir.decrGlobalDepth()
	}
	return nil
}

// canShrinkGlobalDepth reports whether every occupied local depth is
// strictly less than the current global depth, meaning the directory
// can halve without splitting any bucket pointer pair.
func (t *DiskExtendibleHashTable[K, V]) canShrinkGlobalDepth(dir directoryPage) bool {
	gd := dir.globalDepth()
	if gd == 0 {
		return false
	}
	for i := uint32(0); i < dir.size(); i++ {
		if uint32(dir.localDepth(i)) >= gd {
			return false
		}
	}
	return true
}
