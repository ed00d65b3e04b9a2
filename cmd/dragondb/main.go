package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dragonbase/storage/hashindex"
	"github.com/dragonbase/storage/pagestore"
)

func replacerPolicy(name string) pagestore.ReplacerPolicy {
	switch name {
	case "clock":
		return pagestore.ReplacerClock
	case "lru-k", "lruk":
		return pagestore.ReplacerLRUK
	default:
		return pagestore.ReplacerLRU
	}
}

func main() {
	configPath := flag.String("config", "dragondb.yaml", "path to the demo config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "function", "main")
		os.Exit(1)
	}

	var disk pagestore.DiskManager
	if cfg.UseDirectIO {
		disk, err = pagestore.NewDirectIODiskManager(cfg.DataFile)
	} else {
		disk, err = pagestore.NewFileDiskManager(cfg.DataFile)
	}
	if err != nil {
		slog.Error("failed to open data file", "path", cfg.DataFile, "error", err, "function", "main")
		os.Exit(1)
	}
	defer disk.Close()

	bpm, err := pagestore.NewBufferPoolManager(pagestore.Config{
		PoolSize:       cfg.Pool.Size,
		ReplacerK:      cfg.Pool.K,
		ReplacerPolicy: replacerPolicy(cfg.Pool.Replacer),
	}, disk)
	if err != nil {
		slog.Error("failed to build buffer pool", "error", err, "function", "main")
		os.Exit(1)
	}

	table, err := hashindex.New[uint64, uint64](bpm, hashindex.Options[uint64, uint64]{
		KeySize:   cfg.Hash.KeySize,
		ValueSize: cfg.Hash.ValueSize,
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
	})
	if err != nil {
		slog.Error("failed to build hash index", "error", err, "function", "main")
		os.Exit(1)
	}

	if _, err := table.Insert(1, 100); err != nil {
		slog.Error("insert failed", "error", err, "function", "main")
		os.Exit(1)
	}
	values, err := table.GetValue(1)
	if err != nil {
		slog.Error("lookup failed", "error", err, "function", "main")
		os.Exit(1)
	}
	fmt.Printf("key=1 values=%v\n", values)

	if err := bpm.FlushAllPages(); err != nil {
		slog.Error("flush failed", "error", err, "function", "main")
		os.Exit(1)
	}
}
