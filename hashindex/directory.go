// Package hashindex implements an on-disk extendible hash table as a
// client of pagestore's buffer pool, per spec.md §6's
// extendible-hash-table expectations and §9's directions for
// completing the source's stubbed parts.
package hashindex

import (
	"encoding/binary"

	"github.com/dragonbase/storage/pagestore"
)

// maxGlobalDepth bounds how many times the directory can double,
// guarding against an infinite split loop when every colliding key
// hashes into the same bucket (spec.md §9 leaves the hash table's
// internal safety margins to the implementer; the source has none).
const maxGlobalDepth = 8

// directorySlots is the number of buckets a directory page can name at
// maxGlobalDepth. It is fixed, not computed from maxGlobalDepth at
// layout time, so the on-disk layout is stable regardless of the
// constant above; bump directoryLayoutDepth if maxGlobalDepth grows.
const directoryLayoutDepth = 8
const directorySlots = 1 << directoryLayoutDepth

const (
	directoryGlobalDepthOffset = 0
	directoryLocalDepthsOffset = 8
	directoryBucketIDsOffset   = directoryLocalDepthsOffset + directorySlots
)

func init() {
	if directoryBucketIDsOffset+directorySlots*8 > pagestore.PageSize {
		panic("hashindex: directory layout exceeds page size")
	}
}

// directoryPage is a typed view over a directory page's raw bytes,
// adapted from HashTableDirectoryPage in
// _examples/original_source/src/storage/page/hash_table_directory_page.h
// (referenced by disk_extendible_hash_table.cpp).
type directoryPage struct {
	data []byte
}

func newDirectoryView(data []byte) directoryPage {
	return directoryPage{data: data}
}

func (d directoryPage) globalDepth() uint32 {
	return binary.LittleEndian.Uint32(d.data[directoryGlobalDepthOffset:])
}

func (d directoryPage) setGlobalDepth(depth uint32) {
	binary.LittleEndian.PutUint32(d.data[directoryGlobalDepthOffset:], depth)
}

func (d directoryPage) incrGlobalDepth() { d.setGlobalDepth(d.globalDepth() + 1) }
func (d directoryPage) decrGlobalDepth() {
	if gd := d.globalDepth(); gd > 0 {
		d.setGlobalDepth(gd - 1)
	}
}

// size is the number of directory entries currently in use, 2^depth.
func (d directoryPage) size() uint32 {
	return 1 << d.globalDepth()
}

func (d directoryPage) globalDepthMask() uint32 {
	return d.size() - 1
}

func (d directoryPage) localDepth(bucketIdx uint32) uint8 {
	return d.data[directoryLocalDepthsOffset+bucketIdx]
}

func (d directoryPage) setLocalDepth(bucketIdx uint32, depth uint8) {
	d.data[directoryLocalDepthsOffset+bucketIdx] = depth
}

func (d directoryPage) localDepthMask(bucketIdx uint32) uint32 {
	return (1 << d.localDepth(bucketIdx)) - 1
}

func (d directoryPage) bucketPageID(bucketIdx uint32) pagestore.PageID {
	off := directoryBucketIDsOffset + int(bucketIdx)*8
	return pagestore.PageID(binary.LittleEndian.Uint64(d.data[off:]))
}

func (d directoryPage) setBucketPageID(bucketIdx uint32, pageID pagestore.PageID) {
	off := directoryBucketIDsOffset + int(bucketIdx)*8
	binary.LittleEndian.PutUint64(d.data[off:], uint64(pageID))
}

// splitImageIndex returns the directory index that shares bucketIdx's
// bucket at bucketIdx's current local depth but differs in the bit
// just above it — the index that is assigned a fresh bucket on split.
func (d directoryPage) splitImageIndex(bucketIdx uint32) uint32 {
	localHighBit := uint32(1) << (d.localDepth(bucketIdx) - 1)
	return bucketIdx ^ localHighBit
}
