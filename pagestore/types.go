// Package pagestore implements the buffer management core of a
// disk-backed storage engine: a fixed-size frame pool that caches
// fixed-size disk pages behind a pluggable replacement policy, and the
// scoped page guards higher layers use to borrow pages safely.
package pagestore

// PageID identifies a page on disk. Page ids come from the
// DiskManager's allocator, which reuses deallocated ids; when the pool
// is sharded (see Config) each instance instead hands out ids from its
// own counter that strides by NumInstances.
type PageID int64

// InvalidPageID is returned in place of a page id when no page is
// associated, e.g. for a frame that holds no page or an inactive guard.
const InvalidPageID PageID = -1

// FrameID identifies a slot in the buffer pool's frame array, in
// [0, PoolSize).
type FrameID int

// PageSize is the fixed size, in bytes, of every page and every frame's
// backing buffer.
const PageSize = 4096

// AccessType records how a frame was just touched. Replacers are free
// to ignore it; LRU-K in this package does, matching the original
// source it is grounded on.
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessLookup
	AccessScan
	AccessIndex
)

// ReplacerPolicy selects which replacement policy a BufferPoolManager
// is constructed with.
type ReplacerPolicy int

const (
	ReplacerLRU ReplacerPolicy = iota
	ReplacerClock
	ReplacerLRUK
)
