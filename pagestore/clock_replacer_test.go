package pagestore

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ClockReplacerTestSuite struct {
	suite.Suite
	replacer *clockReplacer
}

func (cs *ClockReplacerTestSuite) SetupTest() {
	cs.replacer = newClockReplacer(3)
	for frameID := FrameID(0); frameID < 3; frameID++ {
		cs.replacer.setEvictable(frameID, false) // Pinned
		cs.replacer.setEvictable(frameID, true)  // Unpin -> Referenced
	}
}

func (cs *ClockReplacerTestSuite) TestSecondChanceBeforeEviction() {
	// Every slot starts Referenced; the first pass downgrades each to
	// Ready without evicting any, the second pass evicts frame 0.
	victim, ok := cs.replacer.evict()
	cs.Require().True(ok)
	cs.Equal(FrameID(0), victim)
}

func (cs *ClockReplacerTestSuite) TestEachRevolutionVisitsEverySlotOnce() {
	seen := map[FrameID]bool{}
	for i := 0; i < 3; i++ {
		victim, ok := cs.replacer.evict()
		cs.Require().True(ok)
		seen[victim] = true
	}
	cs.Len(seen, 3)
}

func (cs *ClockReplacerTestSuite) TestNoEvictableReturnsFalse() {
	for frameID := FrameID(0); frameID < 3; frameID++ {
		cs.replacer.setEvictable(frameID, false)
	}
	_, ok := cs.replacer.evict()
	cs.False(ok)
}

func TestClockReplacer(t *testing.T) {
	suite.Run(t, new(ClockReplacerTestSuite))
}
