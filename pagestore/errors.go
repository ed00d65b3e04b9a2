package pagestore

import "errors"

// Error kinds the core reports as explicit return values, never
// through panics. Disk errors are propagated from the DiskManager
// unchanged (wrapped with fmt.Errorf("%w", ...) at the call site).
var (
	// ErrPoolExhausted is returned by NewPage/FetchPage when every
	// frame is pinned and the free list is empty.
	ErrPoolExhausted = errors.New("pagestore: buffer pool exhausted, no evictable frame")

	// ErrNotResident names the case of UnpinPage/FlushPage on a page
	// that is not currently in the pool. Neither returns it: UnpinPage
	// reports the case as false, FlushPage as (false, nil).
	ErrNotResident = errors.New("pagestore: page not resident in buffer pool")

	// ErrAlreadyUnpinned names the case of UnpinPage on a page whose
	// pin count is already zero. UnpinPage reports it as false and does
	// not return this value.
	ErrAlreadyUnpinned = errors.New("pagestore: page already unpinned")

	// ErrInUse names the case of DeletePage on a page that is resident
	// and pinned by at least one client. DeletePage reports it as
	// (false, nil) and does not return this value.
	ErrInUse = errors.New("pagestore: page is pinned, cannot delete")
)
