package pagestore

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// metadataPageID is the fixed page slot holding the free list and
// high-water mark, as in the teacher's FREELIST_PAGE_ID convention.
const metadataPageID PageID = 0

// DiskManager is the external collaborator the buffer pool consumes:
// read/write a fixed-size page identified by page id, and allocate/
// deallocate page ids. Out of scope per spec.md §1 beyond this
// interface — no WAL, no transactions.
type DiskManager interface {
	ReadPage(pageID PageID, buf []byte) error
	WritePage(pageID PageID, data []byte) error
	AllocatePage() (PageID, error)
	DeallocatePage(pageID PageID) error
	Close() error
}

// FileDiskManager is a portable, os.File-backed DiskManager. It keeps
// page 0 reserved for its own free-list bookkeeping, matching the
// teacher's DiskManager/OSBufferedDiskManager convention.
type FileDiskManager struct {
	mutex *sync.Mutex
	file  *os.File

	deallocated        []PageID
	maxAllocatedPageID PageID
}

// NewFileDiskManager opens (or creates) the backing file at path and
// restores the free list from its metadata page.
func NewFileDiskManager(path string) (*FileDiskManager, error) {

	newFile := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		newFile = true
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("pagestore: open %s: %w", path, err)
	}

	disk := &FileDiskManager{
		mutex:              &sync.Mutex{},
		file:               f,
		deallocated:        make([]PageID, 0),
		maxAllocatedPageID: InvalidPageID,
	}

	if newFile {
		if err := disk.writeAt(metadataPageID, disk.serializeMetadata()); err != nil {
			return nil, err
		}
		return disk, nil
	}

	buf := make([]byte, PageSize)
	if err := disk.readAt(metadataPageID, buf); err != nil {
		return nil, err
	}
	disk.deserializeMetadata(buf)

	return disk, nil
}

func (disk *FileDiskManager) readAt(pageID PageID, buf []byte) error {

	if len(buf) != PageSize {
		return fmt.Errorf("pagestore: read buffer must be %d bytes, got %d", PageSize, len(buf))
	}

	n, err := disk.file.ReadAt(buf, int64(pageID)*PageSize)
	if err != nil {
		return fmt.Errorf("pagestore: read page %d: %w", pageID, err)
	}
	if n != PageSize {
		return fmt.Errorf("pagestore: incomplete read of page %d, got %d bytes", pageID, n)
	}
	return nil
}

func (disk *FileDiskManager) writeAt(pageID PageID, data []byte) error {

	if len(data) != PageSize {
		return fmt.Errorf("pagestore: write buffer must be %d bytes, got %d", PageSize, len(data))
	}

	n, err := disk.file.WriteAt(data, int64(pageID)*PageSize)
	if err != nil {
		return fmt.Errorf("pagestore: write page %d: %w", pageID, err)
	}
	if n != PageSize {
		return fmt.Errorf("pagestore: incomplete write of page %d, got %d bytes", pageID, n)
	}
	return nil
}

// ReadPage reads the page's full contents into buf, which must be
// exactly PageSize bytes.
func (disk *FileDiskManager) ReadPage(pageID PageID, buf []byte) error {
	return disk.readAt(pageID, buf)
}

// WritePage writes data (exactly PageSize bytes) to the given page id.
func (disk *FileDiskManager) WritePage(pageID PageID, data []byte) error {
	return disk.writeAt(pageID, data)
}

// AllocatePage reuses a deallocated page id if one is available,
// otherwise extends the high-water mark. Page 0 is reserved for
// metadata and is never handed out.
func (disk *FileDiskManager) AllocatePage() (PageID, error) {
	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	if len(disk.deallocated) > 0 {
		pageID := disk.deallocated[0]
		disk.deallocated = disk.deallocated[1:]
		return pageID, nil
	}

	if disk.maxAllocatedPageID < metadataPageID {
		disk.maxAllocatedPageID = metadataPageID
	}
	disk.maxAllocatedPageID++
	return disk.maxAllocatedPageID, nil
}

// DeallocatePage marks pageID free for reuse by a future AllocatePage.
func (disk *FileDiskManager) DeallocatePage(pageID PageID) error {
	disk.mutex.Lock()
	disk.deallocated = append(disk.deallocated, pageID)
	disk.mutex.Unlock()
	return nil
}

// Close persists the free list to the metadata page and closes the
// backing file.
func (disk *FileDiskManager) Close() error {
	disk.mutex.Lock()
	data := disk.serializeMetadata()
	disk.mutex.Unlock()

	if err := disk.writeAt(metadataPageID, data); err != nil {
		return err
	}
	return disk.file.Close()
}

func (disk *FileDiskManager) serializeMetadata() []byte {

	data := make([]byte, PageSize)

	pointer := 0
	binary.LittleEndian.PutUint64(data[pointer:pointer+8], uint64(disk.maxAllocatedPageID))
	pointer += 8

	binary.LittleEndian.PutUint64(data[pointer:pointer+8], uint64(len(disk.deallocated)))
	pointer += 8

	for _, pageID := range disk.deallocated {
		binary.LittleEndian.PutUint64(data[pointer:pointer+8], uint64(pageID))
		pointer += 8
	}
	return data
}

func (disk *FileDiskManager) deserializeMetadata(data []byte) {

	pointer := 0
	disk.maxAllocatedPageID = PageID(binary.LittleEndian.Uint64(data[pointer : pointer+8]))
	pointer += 8

	count := binary.LittleEndian.Uint64(data[pointer : pointer+8])
	pointer += 8

	deallocated := make([]PageID, 0, count)
	for i := uint64(0); i < count; i++ {
		deallocated = append(deallocated, PageID(binary.LittleEndian.Uint64(data[pointer:pointer+8])))
		pointer += 8
	}
	disk.deallocated = deallocated
}
