package pagestore

// clockState is one slot's second-chance state, grounded on
// _examples/original_source/src/buffer/clock_replacer.cpp's
// ClockState enum.
type clockState int

const (
	clockOut clockState = iota
	clockReady
	clockReferenced
	clockPinned
)

// clockReplacer implements the clock (second-chance) policy: a
// rotating hand advances over a fixed-size slot array, downgrading a
// Referenced slot to Ready on its first pass and evicting the next
// Ready slot it finds. This port uses 0-based indexing sized N rather
// than the original's 1-based, size-(N+1) array (spec.md §9 allows
// either, as long as one revolution visits every slot exactly once).
//
// The original drives Ready/Referenced/Pinned transitions from Pin()/
// Unpin() alone; RecordAccess has no equivalent there, so this port
// folds the original's Pin()/Unpin() logic into setEvictable and
// leaves recordAccess a no-op, same as the original ignores
// AccessType.
type clockReplacer struct {
	state        []clockState
	hand         int
	evictableCnt int
}

func newClockReplacer(poolSize int) *clockReplacer {
	state := make([]clockState, poolSize)
	for i := range state {
		state[i] = clockOut
	}
	return &clockReplacer{state: state}
}

func (r *clockReplacer) advance() {
	r.hand++
	if r.hand >= len(r.state) {
		r.hand = 0
	}
}

func (r *clockReplacer) recordAccess(FrameID, AccessType) {}

// setEvictable(true) is the original's Unpin: a slot last seen Pinned
// gets a second chance (Referenced); a slot last seen Out (never
// pinned, or just evicted) becomes immediately evictable (Ready).
// setEvictable(false) is the original's Pin: always moves to Pinned,
// decrementing the evictable count if the slot had been counted.
func (r *clockReplacer) setEvictable(frameID FrameID, evictable bool) {
	current := r.state[frameID]
	if evictable {
		switch current {
		case clockPinned:
			r.state[frameID] = clockReferenced
			r.evictableCnt++
		case clockOut:
			r.state[frameID] = clockReady
			r.evictableCnt++
		}
		return
	}
	if current == clockReady || current == clockReferenced {
		r.evictableCnt--
	}
	r.state[frameID] = clockPinned
}

func (r *clockReplacer) evict() (FrameID, bool) {
	if r.evictableCnt == 0 {
		return 0, false
	}
	for {
		switch r.state[r.hand] {
		case clockReady:
			victim := FrameID(r.hand)
			r.state[r.hand] = clockOut
			r.evictableCnt--
			r.advance()
			return victim, true
		case clockReferenced:
			r.state[r.hand] = clockReady
			r.advance()
		default:
			r.advance()
		}
	}
}

func (r *clockReplacer) remove(frameID FrameID) {
	if r.state[frameID] == clockReady || r.state[frameID] == clockReferenced {
		r.evictableCnt--
	}
	r.state[frameID] = clockOut
}

func (r *clockReplacer) size() int {
	return r.evictableCnt
}
