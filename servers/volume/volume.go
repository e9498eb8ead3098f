package volume

import (
	"errors"
	"fmt"

	devdisc "github.com/AnishMulay/sandfs/internal/block_device/localdisc"
	"github.com/AnishMulay/sandfs/internal/config"
	fileservice "github.com/AnishMulay/sandfs/internal/file_service/simple"
	"github.com/AnishMulay/sandfs/internal/log_service"
	locallog "github.com/AnishMulay/sandfs/internal/log_service/localdisc"
	snapdisc "github.com/AnishMulay/sandfs/internal/snapshot_service/localdisc"
)

type Options struct {
	ConfigPath string
	// LogLevel overrides the configured level when set.
	LogLevel string
}

// Volume is a started engine over an on-disk image and snapshot.
type Volume struct {
	Config *config.Config
	FS     *fileservice.SimpleFileService
	Logs   *locallog.LocalDiscLogService
}

func Open(opts Options) (*Volume, error) {
	// 1. Configuration
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		if !log_service.ValidLevel(opts.LogLevel) {
			return nil, fmt.Errorf("%w: unknown log level %q", config.ErrInvalidConfig, opts.LogLevel)
		}
		cfg.LogLevel = opts.LogLevel
	}

	// 2. Logging
	ls, err := locallog.NewLocalDiscLogService(cfg.LogDir, cfg.VolumeName, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	// 3. Block device
	dev, err := devdisc.NewLocalDiscBlockDevice(cfg.DiskPath, cfg.Geometry(), ls)
	if err != nil {
		return nil, errors.Join(err, ls.Close())
	}

	// 4. Snapshot store
	store, err := snapdisc.NewLocalDiscSnapshotStore(cfg.SnapshotDir, cfg.SnapshotName, ls)
	if err != nil {
		return nil, errors.Join(err, dev.Close(), ls.Close())
	}

	// 5. Engine
	fs := fileservice.NewSimpleFileService(dev, store, ls)
	if err := fs.Start(); err != nil {
		return nil, errors.Join(err, dev.Close(), ls.Close())
	}

	return &Volume{Config: cfg, FS: fs, Logs: ls}, nil
}

func (v *Volume) Close() error {
	return errors.Join(v.FS.Stop(), v.Logs.Close())
}
