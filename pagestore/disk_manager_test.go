package pagestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FileDiskManagerTestSuite struct {
	suite.Suite
	path string
	disk *FileDiskManager
}

func (ds *FileDiskManagerTestSuite) SetupTest() {
	ds.path = filepath.Join(ds.T().TempDir(), "data.db")
	disk, err := NewFileDiskManager(ds.path)
	ds.Require().NoError(err)
	ds.disk = disk
}

func (ds *FileDiskManagerTestSuite) TearDownTest() {
	ds.Require().NoError(ds.disk.Close())
}

func (ds *FileDiskManagerTestSuite) TestAllocateWriteRead() {
	pageID, err := ds.disk.AllocatePage()
	ds.Require().NoError(err)

	want := make([]byte, PageSize)
	copy(want, []byte("hello world"))
	ds.Require().NoError(ds.disk.WritePage(pageID, want))

	got := make([]byte, PageSize)
	ds.Require().NoError(ds.disk.ReadPage(pageID, got))
	ds.Equal(want, got)
}

func (ds *FileDiskManagerTestSuite) TestDeallocateReusesPageID() {
	first, err := ds.disk.AllocatePage()
	ds.Require().NoError(err)
	ds.Require().NoError(ds.disk.DeallocatePage(first))

	second, err := ds.disk.AllocatePage()
	ds.Require().NoError(err)
	ds.Equal(first, second)
}

func (ds *FileDiskManagerTestSuite) TestFreeListSurvivesReopen() {
	pageID, err := ds.disk.AllocatePage()
	ds.Require().NoError(err)
	ds.Require().NoError(ds.disk.DeallocatePage(pageID))
	ds.Require().NoError(ds.disk.Close())

	reopened, err := NewFileDiskManager(ds.path)
	ds.Require().NoError(err)
	ds.disk = reopened

	reused, err := ds.disk.AllocatePage()
	ds.Require().NoError(err)
	ds.Equal(pageID, reused)
}

func TestFileDiskManager(t *testing.T) {
	suite.Run(t, new(FileDiskManagerTestSuite))
}
