package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig is the host-level configuration for a dmrt process: operand
// stack / call-frame limits and the address of the external connection
// bridge (resource manager / rendering service). Loaded from YAML rather
// than hand-rolled flag parsing, matching the teacher's own reach for
// gopkg.in/yaml.v3 wherever it needs structured config or serialization.
type RuntimeConfig struct {
	MaxFrameCount int    `yaml:"max_frame_count"`
	MaxStackSize  int    `yaml:"max_stack_size"`
	BridgeAddr    string `yaml:"bridge_addr"`
	PersistDSN    string `yaml:"persist_dsn"`
}

// DefaultRuntimeConfig returns the configuration used when no file is given.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MaxFrameCount: DefaultMaxFrameCount,
		MaxStackSize:  DefaultMaxStackSize,
		BridgeAddr:    "",
		PersistDSN:    "file::memory:?cache=shared",
	}
}

// LoadRuntimeConfig reads a YAML config file, filling in defaults for any
// field left unset.
func LoadRuntimeConfig(path string) (*RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading runtime config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing runtime config %q: %w", path, err)
	}
	if cfg.MaxFrameCount <= 0 {
		cfg.MaxFrameCount = DefaultMaxFrameCount
	}
	if cfg.MaxStackSize <= 0 {
		cfg.MaxStackSize = DefaultMaxStackSize
	}
	return cfg, nil
}
