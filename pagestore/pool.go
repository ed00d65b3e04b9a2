package pagestore

import (
	"fmt"
	"log/slog"
	"sync"
)

// BufferPoolManager caches disk pages in a fixed-size pool of frames
// behind a pluggable replacer, per spec.md §4.2. Grounded on the
// teacher's SimpleBufferPoolManager (buffer_pool_manager/
// simple_buffer_pool_manager.go) for field naming and on
// _examples/original_source/src/buffer/buffer_pool_manager_instance.cpp
// for the NewPage/FetchPage/UnpinPage/DeletePage control flow, which
// the teacher left unfinished (undefined Frame/fetchPage/unpinPage
// referenced by its own guard files).
//
// Two latches protect pool state (spec.md §5):
//
//   - mutex, the pool latch, guards pageTable, freeList, and the
//     replacer's bookkeeping. Released before any frame's rw-latch is
//     acquired or before disk I/O, never held across either.
//   - each frame's own latch, acquired only after mutex is released,
//     protects that frame's payload and pin/dirty metadata.
type BufferPoolManager struct {
	mutex sync.Mutex

	cfg      Config
	frames   []*frame
	freeList []FrameID
	pageTable map[PageID]FrameID
	replacer  replacer
	disk      DiskManager

	nextPageID PageID
}

// NewBufferPoolManager builds a pool of cfg.PoolSize frames backed by
// disk.
func NewBufferPoolManager(cfg Config, disk DiskManager) (*BufferPoolManager, error) {
	cfg = cfg.normalized()
	if cfg.PoolSize < 1 {
		return nil, fmt.Errorf("pagestore: pool size must be >= 1, got %d", cfg.PoolSize)
	}

	frames := make([]*frame, cfg.PoolSize)
	freeList := make([]FrameID, cfg.PoolSize)
	for i := range frames {
		frames[i] = newFrame()
		freeList[i] = FrameID(i)
	}

	bpm := &BufferPoolManager{
		cfg:       cfg,
		frames:    frames,
		freeList:  freeList,
		pageTable: make(map[PageID]FrameID, cfg.PoolSize),
		replacer:  newReplacer(cfg.ReplacerPolicy, cfg.PoolSize, cfg.ReplacerK),
		disk:      disk,
		nextPageID: PageID(cfg.InstanceIndex),
	}
	return bpm, nil
}

// Page is a handle to one frame's payload, returned by NewPage and
// FetchPage. It carries no latch of its own — callers either wrap it
// in a guard (see guards.go) or, for manual pin discipline, call
// UnpinPage/FlushPage directly by page id.
type Page struct {
	id PageID
	fr *frame
}

// ID returns the page id this handle refers to.
func (p *Page) ID() PageID { return p.id }

// Data returns the frame's backing buffer. Reading or writing it
// without holding the frame's latch (e.g. via a guard) is a race.
func (p *Page) Data() []byte { return p.fr.data }

// reserveFrame claims a frame for newPageID, evicting a victim via the
// free list or the replacer if necessary, and commits pageTable,
// freeList and replacer bookkeeping for it before returning — but only
// once any dirty victim has been flushed successfully. If a victim's
// write-back fails, the frame is left untouched (still dirty, still
// mapped to its old page) and recorded and marked evictable again so a
// later eviction attempt can retry it, per spec.md §7; eviction is then
// attempted again, at most PoolSize+1 times in all. Disk I/O and
// frame-latch acquisition always happen
// with the pool latch released, per spec.md §5.
func (bpm *BufferPoolManager) reserveFrame(newPageID PageID, accessType AccessType) (*frame, FrameID, error) {
	var lastErr error

	for attempt := 0; attempt < len(bpm.frames)+1; attempt++ {
		bpm.mutex.Lock()
		if n := len(bpm.freeList); n > 0 {
			frameID := bpm.freeList[n-1]
			bpm.freeList = bpm.freeList[:n-1]
			bpm.pageTable[newPageID] = frameID
			bpm.replacer.recordAccess(frameID, accessType)
			bpm.replacer.setEvictable(frameID, false)
			fr := bpm.frames[frameID]
			bpm.mutex.Unlock()
			return fr, frameID, nil
		}

		frameID, ok := bpm.replacer.evict()
		if !ok {
			bpm.mutex.Unlock()
			if lastErr != nil {
				return nil, 0, lastErr
			}
			return nil, 0, ErrPoolExhausted
		}
		victim := bpm.frames[frameID]
		oldPageID := victim.pageID
		needsFlush := oldPageID != InvalidPageID && victim.isDirty
		bpm.mutex.Unlock()

		if needsFlush {
			victim.latch.Lock()
			stillDirty := victim.pageID == oldPageID && victim.isDirty
			var data []byte
			if stillDirty {
				data = append([]byte(nil), victim.data...)
			}
			victim.latch.Unlock()

			if stillDirty {
				if werr := bpm.disk.WritePage(oldPageID, data); werr != nil {
					lastErr = fmt.Errorf("pagestore: flush victim page %d before eviction: %w", oldPageID, werr)
					slog.Error("flush victim before eviction failed, frame remains dirty", "pageId", oldPageID, "error", werr, "function", "reserveFrame")

					bpm.mutex.Lock()
					bpm.replacer.recordAccess(frameID, accessType)
					bpm.replacer.setEvictable(frameID, true)
					bpm.mutex.Unlock()
					continue
				}
				victim.latch.Lock()
				if victim.pageID == oldPageID {
					victim.isDirty = false
				}
				victim.latch.Unlock()
			}
		}

		bpm.mutex.Lock()
		if victim.pageID != InvalidPageID {
			delete(bpm.pageTable, victim.pageID)
		}
		bpm.pageTable[newPageID] = frameID
		bpm.replacer.recordAccess(frameID, accessType)
		bpm.replacer.setEvictable(frameID, false)
		bpm.mutex.Unlock()
		return victim, frameID, nil
	}

	if lastErr != nil {
		return nil, 0, lastErr
	}
	return nil, 0, ErrPoolExhausted
}

// NewPage allocates a fresh page id, installs it in a pool frame, and
// returns a pinned handle to its (zeroed) contents.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.mutex.Lock()
	newPageID, err := bpm.allocatePageIDLocked()
	bpm.mutex.Unlock()
	if err != nil {
		return nil, err
	}

	fr, _, err := bpm.reserveFrame(newPageID, AccessUnknown)
	if err != nil {
		return nil, err
	}

	fr.latch.Lock()
	fr.reset()
	fr.pageID = newPageID
	fr.pinCount = 1
	fr.latch.Unlock()

	return &Page{id: newPageID, fr: fr}, nil
}

// FetchPage returns a pinned handle to pageID's contents, reading it
// from disk on a miss. accessType is forwarded to the replacer's
// RecordAccess hook. If the disk read fails, the frame is returned to
// the free list rather than left stuck half-claimed, per spec.md §7.
func (bpm *BufferPoolManager) FetchPage(pageID PageID, accessType AccessType) (*Page, error) {
	bpm.mutex.Lock()

	if frameID, ok := bpm.pageTable[pageID]; ok {
		fr := bpm.frames[frameID]
		bpm.replacer.recordAccess(frameID, accessType)
		bpm.replacer.setEvictable(frameID, false)
		bpm.mutex.Unlock()

		fr.latch.Lock()
		fr.pinCount++
		fr.latch.Unlock()

		return &Page{id: pageID, fr: fr}, nil
	}
	bpm.mutex.Unlock()

	fr, frameID, err := bpm.reserveFrame(pageID, accessType)
	if err != nil {
		return nil, err
	}

	fr.latch.Lock()
	if err := bpm.disk.ReadPage(pageID, fr.data); err != nil {
		fr.reset()
		fr.latch.Unlock()

		bpm.mutex.Lock()
		delete(bpm.pageTable, pageID)
		bpm.replacer.remove(frameID)
		bpm.freeList = append(bpm.freeList, frameID)
		bpm.mutex.Unlock()

		return nil, fmt.Errorf("pagestore: fetch page %d: %w", pageID, err)
	}
	fr.pageID = pageID
	fr.isDirty = false
	fr.pinCount = 1
	fr.latch.Unlock()

	return &Page{id: pageID, fr: fr}, nil
}

// UnpinPage decrements pageID's pin count, marking the frame evictable
// once it reaches zero. isDirty is OR'd into the frame's dirty flag.
// Returns false if the page is not resident or already unpinned.
func (bpm *BufferPoolManager) UnpinPage(pageID PageID, isDirty bool, accessType AccessType) bool {
	bpm.mutex.Lock()
	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		bpm.mutex.Unlock()
		return false
	}
	fr := bpm.frames[frameID]

	fr.latch.Lock()
	if fr.pinCount <= 0 {
		fr.latch.Unlock()
		bpm.mutex.Unlock()
		return false
	}
	if isDirty {
		fr.isDirty = true
	}
	fr.pinCount--
	becameEvictable := fr.pinCount == 0
	fr.latch.Unlock()

	if becameEvictable {
		bpm.replacer.recordAccess(frameID, accessType)
		bpm.replacer.setEvictable(frameID, true)
	}
	bpm.mutex.Unlock()
	return true
}

// FlushPage writes pageID's current contents to disk regardless of its
// dirty flag, clearing it afterward. Returns false if not resident.
func (bpm *BufferPoolManager) FlushPage(pageID PageID) (bool, error) {
	bpm.mutex.Lock()
	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		bpm.mutex.Unlock()
		return false, nil
	}
	fr := bpm.frames[frameID]
	bpm.mutex.Unlock()

	fr.latch.Lock()
	defer fr.latch.Unlock()
	if err := bpm.disk.WritePage(pageID, fr.data); err != nil {
		return false, fmt.Errorf("pagestore: flush page %d: %w", pageID, err)
	}
	fr.isDirty = false
	return true, nil
}

// FlushAllPages flushes every resident page, continuing past
// individual failures and returning the first error encountered.
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.mutex.Lock()
	pageIDs := make([]PageID, 0, len(bpm.pageTable))
	for pageID := range bpm.pageTable {
		pageIDs = append(pageIDs, pageID)
	}
	bpm.mutex.Unlock()

	var firstErr error
	for _, pageID := range pageIDs {
		if _, err := bpm.FlushPage(pageID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeletePage removes pageID from the pool and frees it on disk. It
// returns (false, nil) without deleting if the page is resident and
// still pinned. A
// resident, dirty page is flushed before its frame is cleared, per
// spec.md §4.2.
func (bpm *BufferPoolManager) DeletePage(pageID PageID) (bool, error) {
	bpm.mutex.Lock()
	frameID, resident := bpm.pageTable[pageID]
	if !resident {
		bpm.mutex.Unlock()
		if err := bpm.disk.DeallocatePage(pageID); err != nil {
			return false, fmt.Errorf("pagestore: delete page %d: %w", pageID, err)
		}
		return true, nil
	}
	fr := bpm.frames[frameID]
	bpm.mutex.Unlock()

	fr.latch.Lock()
	if fr.pinCount > 0 {
		fr.latch.Unlock()
		return false, nil
	}
	if fr.isDirty {
		if err := bpm.disk.WritePage(pageID, fr.data); err != nil {
			fr.latch.Unlock()
			return false, fmt.Errorf("pagestore: flush page %d before delete: %w", pageID, err)
		}
	}
	fr.reset()
	fr.latch.Unlock()

	bpm.mutex.Lock()
	delete(bpm.pageTable, pageID)
	bpm.replacer.remove(frameID)
	bpm.freeList = append(bpm.freeList, frameID)
	bpm.mutex.Unlock()

	if err := bpm.disk.DeallocatePage(pageID); err != nil {
		return false, fmt.Errorf("pagestore: delete page %d: %w", pageID, err)
	}
	return true, nil
}

// allocatePageIDLocked assigns the next page id. With a single
// instance (the common, tested case) it delegates to the disk
// manager's free-list-reusing allocator; when sharded across
// NumInstances it strides its own monotonic counter instead, matching
// BufferPoolManagerInstance::AllocatePage, since freed ids are not
// meant to be reused across shards. Called with mutex held.
func (bpm *BufferPoolManager) allocatePageIDLocked() (PageID, error) {
	if bpm.cfg.NumInstances <= 1 {
		return bpm.disk.AllocatePage()
	}
	id := bpm.nextPageID
	bpm.nextPageID += PageID(bpm.cfg.NumInstances)
	return id, nil
}

// PoolSize returns the number of frames the pool was constructed with.
func (bpm *BufferPoolManager) PoolSize() int {
	return len(bpm.frames)
}
