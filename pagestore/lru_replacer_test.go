package pagestore

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type LRUReplacerTestSuite struct {
	suite.Suite
	replacer *lruReplacer
}

func (rs *LRUReplacerTestSuite) SetupTest() {
	rs.replacer = newLRUReplacer()
	for _, frameID := range []FrameID{3, 4, 1, 5} {
		rs.replacer.recordAccess(frameID, AccessUnknown)
		rs.replacer.setEvictable(frameID, true)
	}
}

func (rs *LRUReplacerTestSuite) TestEvictReturnsOldest() {
	victim, ok := rs.replacer.evict()
	rs.Require().True(ok)
	rs.Equal(FrameID(3), victim)
}

func (rs *LRUReplacerTestSuite) TestPinRemovesFromVictimQueue() {
	rs.replacer.setEvictable(3, false)
	rs.Equal(3, rs.replacer.size())

	victim, ok := rs.replacer.evict()
	rs.Require().True(ok)
	rs.Equal(FrameID(4), victim)
}

func (rs *LRUReplacerTestSuite) TestRecordAccessMovesToBack() {
	rs.replacer.recordAccess(3, AccessUnknown)

	victim, ok := rs.replacer.evict()
	rs.Require().True(ok)
	rs.Equal(FrameID(4), victim)
}

func (rs *LRUReplacerTestSuite) TestRemoveForgetsFrame() {
	rs.replacer.remove(4)
	rs.Equal(3, rs.replacer.size())
}

func TestLRUReplacer(t *testing.T) {
	suite.Run(t, new(LRUReplacerTestSuite))
}
