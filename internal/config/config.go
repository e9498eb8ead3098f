package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	bd "github.com/AnishMulay/sandfs/internal/block_device"
	"github.com/AnishMulay/sandfs/internal/log_service"
	ss "github.com/AnishMulay/sandfs/internal/snapshot_service"
)

const (
	DefaultBlockSize = 512
	DefaultNumBlocks = 1024
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	VolumeName   string `yaml:"volume_name"`
	DiskPath     string `yaml:"disk_path"`
	BlockSize    int    `yaml:"block_size"`
	NumBlocks    int    `yaml:"num_blocks"`
	SnapshotDir  string `yaml:"snapshot_dir"`
	SnapshotName string `yaml:"snapshot_name"`
	LogDir       string `yaml:"log_dir"`
	LogLevel     string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		VolumeName:   "sandfs",
		DiskPath:     "disk.img",
		BlockSize:    DefaultBlockSize,
		NumBlocks:    DefaultNumBlocks,
		SnapshotDir:  ".",
		SnapshotName: ss.DefaultSnapshotName,
		LogDir:       "logs",
		LogLevel:     log_service.InfoLevel,
	}
}

// LoadConfig reads the YAML file at path. A missing file is created with the
// defaults, which are then returned. Fields absent from the file keep their
// default values.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}

		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.Geometry().Valid() {
		return fmt.Errorf("%w: block_size %d and num_blocks %d must be positive", ErrInvalidConfig, c.BlockSize, c.NumBlocks)
	}
	if c.DiskPath == "" {
		return fmt.Errorf("%w: disk_path is required", ErrInvalidConfig)
	}
	if c.SnapshotName == "" || filepath.Base(c.SnapshotName) != c.SnapshotName {
		return fmt.Errorf("%w: snapshot_name %q must be a plain file name", ErrInvalidConfig, c.SnapshotName)
	}
	if !log_service.ValidLevel(c.LogLevel) {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

func (c *Config) Geometry() bd.Geometry {
	return bd.Geometry{BlockSize: c.BlockSize, NumBlocks: c.NumBlocks}
}
