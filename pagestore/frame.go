package pagestore

import "sync"

// frame is one slot in the buffer pool, holding at most one resident
// page. Its rw-latch protects both the payload (data) and the
// metadata fields below — always acquired after the pool latch is
// released, never while it is held (spec.md §5).
type frame struct {
	latch sync.RWMutex

	pageID   PageID
	data     []byte
	pinCount int
	isDirty  bool
}

func newFrame() *frame {
	return &frame{
		pageID: InvalidPageID,
		data:   make([]byte, PageSize),
	}
}

// reset clears the frame back to its pristine, unoccupied state. The
// caller must hold the frame's write latch.
func (f *frame) reset() {
	for i := range f.data {
		f.data[i] = 0
	}
	f.pageID = InvalidPageID
	f.pinCount = 0
	f.isDirty = false
}
