package pagestore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BufferPoolManagerTestSuite struct {
	suite.Suite
	disk *FileDiskManager
	bpm  *BufferPoolManager
}

func (ps *BufferPoolManagerTestSuite) newPool(poolSize int, policy ReplacerPolicy) *BufferPoolManager {
	path := filepath.Join(ps.T().TempDir(), "data.db")
	disk, err := NewFileDiskManager(path)
	ps.Require().NoError(err)
	ps.disk = disk

	bpm, err := NewBufferPoolManager(Config{PoolSize: poolSize, ReplacerK: 2, ReplacerPolicy: policy}, disk)
	ps.Require().NoError(err)
	return bpm
}

func (ps *BufferPoolManagerTestSuite) SetupTest() {
	ps.bpm = ps.newPool(3, ReplacerLRUK)
}

// Scenario 1: pool_size=3; NewPage x3 pins all frames; a fourth
// NewPage fails until one is unpinned, then evicts the unpinned frame
// cleanly (no write, since it was never marked dirty).
func (ps *BufferPoolManagerTestSuite) TestPoolExhaustionThenEviction() {
	p0, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	ps.Equal(PageID(1), p0.ID()) // page 0 is reserved for disk metadata

	p1, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	p2, err := ps.bpm.NewPage()
	ps.Require().NoError(err)

	_, err = ps.bpm.NewPage()
	ps.Require().ErrorIs(err, ErrPoolExhausted)

	ps.True(ps.bpm.UnpinPage(p0.ID(), false, AccessUnknown))

	p3, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	ps.NotEqual(InvalidPageID, p3.ID())

	ps.True(ps.bpm.UnpinPage(p1.ID(), false, AccessUnknown))
	ps.True(ps.bpm.UnpinPage(p2.ID(), false, AccessUnknown))
	ps.True(ps.bpm.UnpinPage(p3.ID(), false, AccessUnknown))
}

// Scenario 2: a dirty page, evicted under pool pressure, is flushed
// exactly once before its frame is reused, and a later fetch observes
// the flushed bytes.
func (ps *BufferPoolManagerTestSuite) TestDirtyEvictionFlushesOnce() {
	page, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	pageID := page.ID()
	copy(page.Data(), []byte("X"))
	ps.True(ps.bpm.UnpinPage(pageID, true, AccessUnknown))

	for i := 0; i < 4; i++ {
		p, err := ps.bpm.NewPage()
		ps.Require().NoError(err)
		ps.True(ps.bpm.UnpinPage(p.ID(), false, AccessUnknown))
	}

	fetched, err := ps.bpm.FetchPage(pageID, AccessUnknown)
	ps.Require().NoError(err)
	ps.Equal(byte('X'), fetched.Data()[0])
	ps.True(ps.bpm.UnpinPage(pageID, false, AccessUnknown))
}

// Scenario 3: pin count accumulates across repeated fetches and
// blocks deletion until every pin is released.
func (ps *BufferPoolManagerTestSuite) TestPinCountBlocksDelete() {
	page, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	pageID := page.ID()

	_, err = ps.bpm.FetchPage(pageID, AccessUnknown)
	ps.Require().NoError(err)
	_, err = ps.bpm.FetchPage(pageID, AccessUnknown)
	ps.Require().NoError(err)

	ps.True(ps.bpm.UnpinPage(pageID, false, AccessUnknown))

	ok, err := ps.bpm.DeletePage(pageID)
	ps.Require().NoError(err)
	ps.False(ok)

	ps.True(ps.bpm.UnpinPage(pageID, false, AccessUnknown))
	ps.True(ps.bpm.UnpinPage(pageID, false, AccessUnknown))

	ok, err = ps.bpm.DeletePage(pageID)
	ps.Require().NoError(err)
	ps.True(ok)
}

// Scenario 4: a write guard blocks a concurrent read guard until
// dropped, after which the reader observes the written bytes.
func (ps *BufferPoolManagerTestSuite) TestWriteGuardBlocksReadGuard() {
	var pageID PageID
	guard, err := ps.bpm.NewPageGuarded(&pageID)
	ps.Require().NoError(err)
	writeGuard := guard.UpgradeWrite()
	copy(writeGuard.Data(), []byte("B1"))

	readStarted := make(chan struct{})
	readDone := make(chan []byte, 1)
	go func() {
		close(readStarted)
		rg, err := ps.bpm.FetchPageRead(pageID, AccessUnknown)
		if err != nil {
			readDone <- nil
			return
		}
		defer rg.Done()
		buf := make([]byte, 2)
		copy(buf, rg.Data()[:2])
		readDone <- buf
	}()

	<-readStarted
	time.Sleep(20 * time.Millisecond)
	writeGuard.Done()

	got := <-readDone
	ps.Equal([]byte("B1"), got)
}

// Scenario 5: with pool_size=2 and two pinned pages, a third NewPage
// fails until one is unpinned.
func (ps *BufferPoolManagerTestSuite) TestSmallPoolRetryAfterUnpin() {
	bpm := ps.newPool(2, ReplacerLRU)

	p0, err := bpm.NewPage()
	ps.Require().NoError(err)
	_, err = bpm.NewPage()
	ps.Require().NoError(err)

	_, err = bpm.NewPage()
	ps.Require().ErrorIs(err, ErrPoolExhausted)

	ps.True(bpm.UnpinPage(p0.ID(), false, AccessUnknown))
	_, err = bpm.NewPage()
	ps.Require().NoError(err)
}

// Scenario 6: DeletePage on a resident, unpinned page returns the
// frame to the free list with pristine metadata, reused by the next
// NewPage.
func (ps *BufferPoolManagerTestSuite) TestDeletePageReturnsFrameToFreeList() {
	page, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	pageID := page.ID()
	ps.True(ps.bpm.UnpinPage(pageID, false, AccessUnknown))

	ok, err := ps.bpm.DeletePage(pageID)
	ps.Require().NoError(err)
	ps.True(ok)

	ps.Equal(1, len(ps.bpm.freeList))

	next, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	ps.NotEqual(InvalidPageID, next.ID())
}

func (ps *BufferPoolManagerTestSuite) TestFlushPageIdempotent() {
	page, err := ps.bpm.NewPage()
	ps.Require().NoError(err)
	ok, err := ps.bpm.FlushPage(page.ID())
	ps.Require().NoError(err)
	ps.True(ok)

	ok, err = ps.bpm.FlushPage(page.ID())
	ps.Require().NoError(err)
	ps.True(ok)
}

func TestBufferPoolManager(t *testing.T) {
	suite.Run(t, new(BufferPoolManagerTestSuite))
}
