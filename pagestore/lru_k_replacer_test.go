package pagestore

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type LRUKReplacerTestSuite struct {
	suite.Suite
	replacer *lruKReplacer
}

func (rs *LRUKReplacerTestSuite) SetupTest() {
	rs.replacer = newLRUKReplacer(2)
}

// TestFIFOWithinHotThenCold reproduces spec.md's literal scenario:
// k=2, access A,B,C (all SetEvictable(true)), then A,B again ⇒
// Evict() returns C (still in hot), then A, then B.
func (rs *LRUKReplacerTestSuite) TestFIFOWithinHotThenCold() {
	a, b, c := FrameID(0), FrameID(1), FrameID(2)

	rs.replacer.recordAccess(a, AccessUnknown)
	rs.replacer.recordAccess(b, AccessUnknown)
	rs.replacer.recordAccess(c, AccessUnknown)
	rs.replacer.setEvictable(a, true)
	rs.replacer.setEvictable(b, true)
	rs.replacer.setEvictable(c, true)

	rs.replacer.recordAccess(a, AccessUnknown)
	rs.replacer.recordAccess(b, AccessUnknown)

	victim, ok := rs.replacer.evict()
	rs.Require().True(ok)
	rs.Equal(c, victim)

	victim, ok = rs.replacer.evict()
	rs.Require().True(ok)
	rs.Equal(a, victim)

	victim, ok = rs.replacer.evict()
	rs.Require().True(ok)
	rs.Equal(b, victim)
}

func (rs *LRUKReplacerTestSuite) TestSizeCountsOnlyEvictable() {
	rs.replacer.recordAccess(0, AccessUnknown)
	rs.Equal(0, rs.replacer.size())

	rs.replacer.setEvictable(0, true)
	rs.Equal(1, rs.replacer.size())
}

func TestLRUKReplacer(t *testing.T) {
	suite.Run(t, new(LRUKReplacerTestSuite))
}
