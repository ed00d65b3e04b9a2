package pagestore

import "log/slog"

// BasicPageGuard, ReadPageGuard and WritePageGuard are move-only scoped
// borrows of a pinned page, adapted from the teacher's ReadGuard/
// WriteGuard (buffer_pool_manager/read_guard.go,
// buffer_pool_manager/write_guard.go). The teacher's guards are tied to
// its B-tree slotted-page codec; these instead expose the raw page
// buffer, since spec.md leaves page layout to the client (hashindex).
//
// A guard is active until it is released: by Drop on a BasicPageGuard,
// by Done or DeletePage on a ReadPageGuard/WritePageGuard, or by an
// Upgrade, which moves the pin into a new guard. Releasing an inactive
// guard is a no-op, so each release is idempotent.

// BasicPageGuard holds a pin on a page without any rw-latch of its
// own; callers serialize access themselves. Upgrading to Read or
// Write acquires the frame's latch.
type BasicPageGuard struct {
	active bool
	bpm    *BufferPoolManager
	page   *Page
}

// FetchPageBasic fetches pageID and returns an active BasicPageGuard.
func (bpm *BufferPoolManager) FetchPageBasic(pageID PageID, accessType AccessType) (*BasicPageGuard, error) {
	page, err := bpm.FetchPage(pageID, accessType)
	if err != nil {
		return nil, err
	}
	return &BasicPageGuard{active: true, bpm: bpm, page: page}, nil
}

// NewPageGuarded allocates a fresh page and returns an active
// BasicPageGuard over it. The new page's id is written to *pageID.
func (bpm *BufferPoolManager) NewPageGuarded(pageID *PageID) (*BasicPageGuard, error) {
	page, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	*pageID = page.ID()
	return &BasicPageGuard{active: true, bpm: bpm, page: page}, nil
}

// PageID returns the guarded page's id, or InvalidPageID if inactive.
func (g *BasicPageGuard) PageID() PageID {
	if !g.active {
		return InvalidPageID
	}
	return g.page.ID()
}

// Data returns the page's contents. Valid only while the guard is
// active; callers are responsible for serializing access themselves,
// per the BasicPageGuard contract above.
func (g *BasicPageGuard) Data() []byte {
	if !g.active {
		return nil
	}
	return g.page.Data()
}

// Drop flushes the page if isDirty is set, then unpins it with that
// dirty flag, mirroring the teacher's BasicPageGuard::Drop
// (_examples/original_source/src/storage/page/page_guard.cpp). A
// dropped guard is inactive and its methods become no-ops.
func (g *BasicPageGuard) Drop(isDirty bool) {
	if !g.active {
		return
	}
	pageID := g.page.ID()
	if isDirty {
		if _, err := g.bpm.FlushPage(pageID); err != nil {
			slog.Error("flush dirty page on drop failed", "pageId", pageID, "error", err, "function", "BasicPageGuard.Drop")
		}
	}
	g.bpm.UnpinPage(pageID, isDirty, AccessUnknown)
	g.active = false
	g.page = nil
	g.bpm = nil
}

// UpgradeRead consumes this guard and returns an active ReadPageGuard
// holding the frame's read latch.
func (g *BasicPageGuard) UpgradeRead() *ReadPageGuard {
	if !g.active {
		return &ReadPageGuard{}
	}
	page, bpm := g.page, g.bpm
	g.active = false
	g.page = nil
	g.bpm = nil

	page.fr.latch.RLock()
	return &ReadPageGuard{active: true, bpm: bpm, page: page}
}

// UpgradeWrite consumes this guard and returns an active
// WritePageGuard holding the frame's write latch.
func (g *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	if !g.active {
		return &WritePageGuard{}
	}
	page, bpm := g.page, g.bpm
	g.active = false
	g.page = nil
	g.bpm = nil

	page.fr.latch.Lock()
	return &WritePageGuard{active: true, bpm: bpm, page: page}
}

// ReadPageGuard holds a shared read latch on a pinned page.
type ReadPageGuard struct {
	active bool
	bpm    *BufferPoolManager
	page   *Page
}

// FetchPageRead fetches pageID, pins it, and returns it with the
// frame's read latch already held.
func (bpm *BufferPoolManager) FetchPageRead(pageID PageID, accessType AccessType) (*ReadPageGuard, error) {
	page, err := bpm.FetchPage(pageID, accessType)
	if err != nil {
		return nil, err
	}
	page.fr.latch.RLock()
	return &ReadPageGuard{active: true, bpm: bpm, page: page}, nil
}

// PageID returns the guarded page's id, or InvalidPageID if inactive.
func (g *ReadPageGuard) PageID() PageID {
	if !g.active {
		return InvalidPageID
	}
	return g.page.ID()
}

// Data returns the page's contents. Valid only while the guard is
// active.
func (g *ReadPageGuard) Data() []byte {
	if !g.active {
		return nil
	}
	return g.page.Data()
}

// Done releases the read latch and unpins the page. Equivalent to the
// teacher's ReadGuard.Done.
func (g *ReadPageGuard) Done() {
	if !g.active {
		return
	}
	page, bpm := g.page, g.bpm
	g.active = false
	g.page = nil
	g.bpm = nil

	page.fr.latch.RUnlock()
	bpm.UnpinPage(page.ID(), false, AccessUnknown)
}

// WritePageGuard holds an exclusive write latch on a pinned page.
type WritePageGuard struct {
	active bool
	bpm    *BufferPoolManager
	page   *Page
}

// FetchPageWrite fetches pageID, pins it, and returns it with the
// frame's write latch already held.
func (bpm *BufferPoolManager) FetchPageWrite(pageID PageID, accessType AccessType) (*WritePageGuard, error) {
	page, err := bpm.FetchPage(pageID, accessType)
	if err != nil {
		return nil, err
	}
	page.fr.latch.Lock()
	return &WritePageGuard{active: true, bpm: bpm, page: page}, nil
}

// PageID returns the guarded page's id, or InvalidPageID if inactive.
func (g *WritePageGuard) PageID() PageID {
	if !g.active {
		return InvalidPageID
	}
	return g.page.ID()
}

// Data returns the page's contents for in-place mutation. Valid only
// while the guard is active.
func (g *WritePageGuard) Data() []byte {
	if !g.active {
		return nil
	}
	return g.page.Data()
}

// Done releases the write latch and unpins the page as dirty.
// Equivalent to the teacher's WriteGuard.Done.
func (g *WritePageGuard) Done() {
	if !g.active {
		return
	}
	page, bpm := g.page, g.bpm
	g.active = false
	g.page = nil
	g.bpm = nil

	page.fr.latch.Unlock()
	bpm.UnpinPage(page.ID(), true, AccessUnknown)
}

// DeletePage releases the write latch and this guard's pin, then calls
// the buffer pool's DeletePage. Equivalent to the teacher's
// WriteGuard.DeletePage. Returns (false, nil) without deleting if the
// page is still pinned by anyone else.
func (g *WritePageGuard) DeletePage() (bool, error) {
	if !g.active {
		return false, nil
	}
	page, bpm := g.page, g.bpm

	page.fr.latch.Unlock()
	g.active = false
	g.page = nil
	g.bpm = nil

	bpm.UnpinPage(page.ID(), false, AccessUnknown)
	return bpm.DeletePage(page.ID())
}
