// Package config loads process configuration from the environment. The core
// requires almost nothing: a writable storage directory (or an in-memory
// store under tests) and the logger's own LOG_LEVEL/LOG_FORMAT variables.
package config

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	StorageDir string `env:"RPGCORE_STORAGE_DIR" envDefault:"./data"`
	TestMode   bool   `env:"RPGCORE_TEST_MODE" envDefault:"false"`
	Transport  string `env:"RPGCORE_TRANSPORT" envDefault:"stdio"`
	WSAddr     string `env:"RPGCORE_WS_ADDR" envDefault:":8099"`
}

// Load parses Config from the environment, applying defaults for anything unset.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DSN returns the database/sql data source name for the configured store.
func (c Config) DSN() string {
	if c.TestMode {
		return "file::memory:?cache=shared"
	}
	return c.StorageDir + "/rpgcore.db"
}
