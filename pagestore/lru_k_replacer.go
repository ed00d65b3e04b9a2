package pagestore

import "container/list"

// lruKNode tracks one frame's access count and evictable flag, mirroring
// _examples/original_source/src/buffer/lru_k_replacer.cpp's LRUKNode.
type lruKNode struct {
	accessCount int
	evictable   bool
}

// lruKReplacer distinguishes frames by recency of their kth most recent
// reference, using two FIFO candidate lists rather than the classical
// backward-k-distance comparison — the original source's own variant,
// which spec.md §4.1.3/§9 pins as the behavior to match:
//
//   - hot:  frames with < k total accesses, FIFO by first access.
//   - cold: frames with >= k accesses, FIFO by most recent kth access.
//
// Eviction scans hot first, then cold, returning the first evictable
// frame found.
//
// Unlike the original (whose replacer_size_ increments on first access
// regardless of evictability, violating spec.md invariant I7), size()
// here only reflects frames currently marked evictable.
type lruKReplacer struct {
	k int

	nodes map[FrameID]*lruKNode
	hot   *list.List // values are FrameID
	cold  *list.List // values are FrameID

	hotElem  map[FrameID]*list.Element
	coldElem map[FrameID]*list.Element

	evictableCnt int
}

func newLRUKReplacer(k int) *lruKReplacer {
	if k < 1 {
		k = 1
	}
	return &lruKReplacer{
		k:        k,
		nodes:    make(map[FrameID]*lruKNode),
		hot:      list.New(),
		cold:     list.New(),
		hotElem:  make(map[FrameID]*list.Element),
		coldElem: make(map[FrameID]*list.Element),
	}
}

func (r *lruKReplacer) unlist(frameID FrameID) {
	if elem, ok := r.hotElem[frameID]; ok {
		r.hot.Remove(elem)
		delete(r.hotElem, frameID)
	}
	if elem, ok := r.coldElem[frameID]; ok {
		r.cold.Remove(elem)
		delete(r.coldElem, frameID)
	}
}

func (r *lruKReplacer) recordAccess(frameID FrameID, _ AccessType) {
	node, tracked := r.nodes[frameID]
	if !tracked {
		node = &lruKNode{}
		r.nodes[frameID] = node
		node.accessCount++
		r.hotElem[frameID] = r.hot.PushBack(frameID)
		return
	}

	r.unlist(frameID)
	node.accessCount++

	if node.accessCount < r.k {
		r.hotElem[frameID] = r.hot.PushBack(frameID)
	} else {
		r.coldElem[frameID] = r.cold.PushBack(frameID)
	}
}

func (r *lruKReplacer) setEvictable(frameID FrameID, evictable bool) {
	node, ok := r.nodes[frameID]
	if !ok {
		node = &lruKNode{}
		r.nodes[frameID] = node
	}
	if node.evictable == evictable {
		return
	}
	node.evictable = evictable
	if evictable {
		r.evictableCnt++
	} else {
		r.evictableCnt--
	}
}

func (r *lruKReplacer) evict() (FrameID, bool) {
	for elem := r.hot.Front(); elem != nil; elem = elem.Next() {
		frameID := elem.Value.(FrameID)
		if r.nodes[frameID].evictable {
			r.hot.Remove(elem)
			delete(r.hotElem, frameID)
			delete(r.nodes, frameID)
			r.evictableCnt--
			return frameID, true
		}
	}
	for elem := r.cold.Front(); elem != nil; elem = elem.Next() {
		frameID := elem.Value.(FrameID)
		if r.nodes[frameID].evictable {
			r.cold.Remove(elem)
			delete(r.coldElem, frameID)
			delete(r.nodes, frameID)
			r.evictableCnt--
			return frameID, true
		}
	}
	return 0, false
}

func (r *lruKReplacer) remove(frameID FrameID) {
	if node, ok := r.nodes[frameID]; ok && node.evictable {
		r.evictableCnt--
	}
	r.unlist(frameID)
	delete(r.nodes, frameID)
}

func (r *lruKReplacer) size() int {
	return r.evictableCnt
}
