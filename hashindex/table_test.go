package hashindex

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dragonbase/storage/pagestore"
)

func uint64Options() Options[uint64, uint64] {
	return Options[uint64, uint64]{
		KeySize:   8,
		ValueSize: 8,
		Hash:      func(k uint64) uint32 { return uint32(k) ^ uint32(k>>32) },
		Equal:     func(a, b uint64) bool { return a == b },
		EncodeKey: func(k uint64) []byte {
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, k)
			return buf
		},
		DecodeKey: func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) },
		EncodeValue: func(v uint64) []byte {
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, v)
			return buf
		},
		DecodeValue: func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) },
	}
}

type HashTableTestSuite struct {
	suite.Suite
	bpm   *pagestore.BufferPoolManager
	table *DiskExtendibleHashTable[uint64, uint64]
}

func (hs *HashTableTestSuite) SetupTest() {
	path := filepath.Join(hs.T().TempDir(), "hash.db")
	disk, err := pagestore.NewFileDiskManager(path)
	hs.Require().NoError(err)

	bpm, err := pagestore.NewBufferPoolManager(pagestore.Config{PoolSize: 32, ReplacerPolicy: pagestore.ReplacerLRU}, disk)
	hs.Require().NoError(err)
	hs.bpm = bpm

	table, err := New(bpm, uint64Options())
	hs.Require().NoError(err)
	hs.table = table
}

func (hs *HashTableTestSuite) TestInsertThenGetValue() {
	ok, err := hs.table.Insert(42, 100)
	hs.Require().NoError(err)
	hs.True(ok)

	values, err := hs.table.GetValue(42)
	hs.Require().NoError(err)
	hs.Equal([]uint64{100}, values)
}

func (hs *HashTableTestSuite) TestDuplicateInsertReturnsFalse() {
	ok, err := hs.table.Insert(1, 1)
	hs.Require().NoError(err)
	hs.True(ok)

	ok, err = hs.table.Insert(1, 1)
	hs.Require().NoError(err)
	hs.False(ok)
}

func (hs *HashTableTestSuite) TestMissingKeyReturnsEmpty() {
	values, err := hs.table.GetValue(999)
	hs.Require().NoError(err)
	hs.Empty(values)
}

func (hs *HashTableTestSuite) TestInsertBeyondBucketCapacityTriggersSplit() {
	const n = 300 // exceeds one bucket's ~253-entry capacity, forcing at least one split
	for i := uint64(0); i < n; i++ {
		ok, err := hs.table.Insert(i, i*10)
		hs.Require().NoError(err)
		hs.Require().True(ok)
	}
	for i := uint64(0); i < n; i++ {
		values, err := hs.table.GetValue(i)
		hs.Require().NoError(err)
		hs.Require().Equal([]uint64{i * 10}, values)
	}
}

func (hs *HashTableTestSuite) TestRemoveThenGetValueEmpty() {
	_, err := hs.table.Insert(7, 70)
	hs.Require().NoError(err)

	ok, err := hs.table.Remove(7, 70)
	hs.Require().NoError(err)
	hs.True(ok)

	values, err := hs.table.GetValue(7)
	hs.Require().NoError(err)
	hs.Empty(values)
}

func (hs *HashTableTestSuite) TestRemoveMissingReturnsFalse() {
	ok, err := hs.table.Remove(123, 456)
	hs.Require().NoError(err)
	hs.False(ok)
}

func TestHashTable(t *testing.T) {
	suite.Run(t, new(HashTableTestSuite))
}
