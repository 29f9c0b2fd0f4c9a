// Package config loads the server's TOML configuration file with
// pelletier/go-toml/v2, the teacher pack's TOML library (grounded on
// AKJUS-bsc-erigon's use of the same package for its node config).
// It defines the shape of the configuration and Load reads and parses the
// file; loading TLS material is out of scope per spec §1.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Host          string `toml:"host"`
	Port          uint16 `toml:"port"`
	DataDir       string `toml:"data_dir"`
	MaxConns      int    `toml:"max_connections"`
	WorkerThreads int    `toml:"worker_threads"`
}

type BGSaveConfig struct {
	Enabled     bool `toml:"enabled"`
	EveryNWrite int  `toml:"every_n_write"`
}

type SnapshotConfig struct {
	Enabled       bool   `toml:"enabled"`
	Every         string `toml:"every"`
	KeepLastN     int    `toml:"keep_last_n"`
}

type SSLConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertPath string `toml:"cert_path"`
	KeyPath  string `toml:"key_path"`
	Port     uint16 `toml:"port"`
}

type AuthConfig struct {
	OriginKey string `toml:"origin_key"`
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	BGSave   BGSaveConfig   `toml:"bgsave"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	SSL      SSLConfig      `toml:"ssl"`
	Auth     AuthConfig     `toml:"auth"`
}

// Default returns a config with the same defaults the server falls back to
// when no config file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          2003,
			DataDir:       "data",
			MaxConns:      1024,
			WorkerThreads: 4,
		},
	}
}

// Load reads and parses a TOML config file, overlaying it on Default().
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
