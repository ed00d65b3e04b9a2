package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// demoConfig is the demo binary's own CLI/env-driven configuration,
// kept deliberately separate from pagestore.Config: the buffer pool
// core itself takes no environment variables or CLI flags (spec.md
// §6), but a process embedding it is free to source its construction
// parameters however it likes. Grounded on the viper-based config
// loader in _examples/tuannm99-novasql/internal/config.go.
type demoConfig struct {
	DataFile string `mapstructure:"data_file"`

	Pool struct {
		Size     int    `mapstructure:"size"`
		Replacer string `mapstructure:"replacer"`
		K        int    `mapstructure:"k"`
	} `mapstructure:"pool"`

	UseDirectIO bool `mapstructure:"use_direct_io"`

	Hash struct {
		KeySize   int `mapstructure:"key_size"`
		ValueSize int `mapstructure:"value_size"`
	} `mapstructure:"hash"`
}

func loadConfig(path string) (*demoConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("data_file", "dragondb.dat")
	v.SetDefault("pool.size", 64)
	v.SetDefault("pool.replacer", "lru")
	v.SetDefault("pool.k", 2)
	v.SetDefault("use_direct_io", false)
	v.SetDefault("hash.key_size", 8)
	v.SetDefault("hash.value_size", 8)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg demoConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
