package pagestore

import "container/list"

// lruReplacer is a doubly-linked list of unpinned frames in LRU order,
// with a side map from frame to node, adapted from the teacher's
// LRUReplacer (buffer_pool_manager/lru_replacer.go). The teacher's
// version tracks insert/remove directly from Pin/Unpin; this version
// adds the recordAccess/setEvictable split the spec requires, so a
// frame is only listed while its pin count is zero AND it has been
// explicitly marked evictable.
type lruReplacer struct {
	order *list.List
	nodes map[FrameID]*list.Element

	evictableFlag map[FrameID]bool
}

func newLRUReplacer() *lruReplacer {
	return &lruReplacer{
		order:         list.New(),
		nodes:         make(map[FrameID]*list.Element),
		evictableFlag: make(map[FrameID]bool),
	}
}

// recordAccess moves frameID to the back of the list (most recently
// used) if it is currently tracked as evictable; otherwise it just
// ensures the frame is known so a later setEvictable(true) can list
// it immediately.
func (r *lruReplacer) recordAccess(frameID FrameID, _ AccessType) {
	if _, ok := r.evictableFlag[frameID]; !ok {
		r.evictableFlag[frameID] = false
	}
	if elem, tracked := r.nodes[frameID]; tracked {
		r.order.MoveToBack(elem)
	}
}

func (r *lruReplacer) setEvictable(frameID FrameID, evictable bool) {
	was, known := r.evictableFlag[frameID]
	if !known {
		r.evictableFlag[frameID] = evictable
		was = false
	}
	if was == evictable {
		return
	}
	r.evictableFlag[frameID] = evictable

	if evictable {
		r.nodes[frameID] = r.order.PushBack(frameID)
	} else if elem, ok := r.nodes[frameID]; ok {
		r.order.Remove(elem)
		delete(r.nodes, frameID)
	}
}

func (r *lruReplacer) evict() (FrameID, bool) {
	front := r.order.Front()
	if front == nil {
		return 0, false
	}
	frameID := front.Value.(FrameID)
	r.order.Remove(front)
	delete(r.nodes, frameID)
	delete(r.evictableFlag, frameID)
	return frameID, true
}

func (r *lruReplacer) remove(frameID FrameID) {
	if elem, ok := r.nodes[frameID]; ok {
		r.order.Remove(elem)
		delete(r.nodes, frameID)
	}
	delete(r.evictableFlag, frameID)
}

func (r *lruReplacer) size() int {
	return r.order.Len()
}
