package pagestore

// replacer tracks unpinned frames and picks a victim to evict,
// per spec.md §4.1. All operations are total. Implementations take no
// lock of their own: the buffer pool calls them only while holding the
// pool latch, which serializes every call.
type replacer interface {
	// recordAccess notes that a frame was just read or written.
	recordAccess(frameID FrameID, accessType AccessType)

	// setEvictable toggles whether frameID may be chosen as a victim.
	setEvictable(frameID FrameID, evictable bool)

	// evict returns a victim frame id and stops tracking it, or false
	// if no evictable frame exists.
	evict() (FrameID, bool)

	// remove forgets a frame entirely, e.g. on explicit delete.
	remove(frameID FrameID)

	// size returns the number of frames currently marked evictable.
	size() int
}

func newReplacer(policy ReplacerPolicy, poolSize int, replacerK int) replacer {
	switch policy {
	case ReplacerClock:
		return newClockReplacer(poolSize)
	case ReplacerLRUK:
		return newLRUKReplacer(replacerK)
	default:
		return newLRUReplacer()
	}
}
