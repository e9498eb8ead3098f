package localdisc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	bd "github.com/AnishMulay/sandfs/internal/block_device"
	"github.com/AnishMulay/sandfs/internal/log_service"
)

// LocalDiscBlockDevice stores blocks in a flat image file. Block i lives at
// byte offset i*blockSize.
type LocalDiscBlockDevice struct {
	path     string
	geometry bd.Geometry
	ls       log_service.LogService

	mu   sync.Mutex
	file *os.File
}

// NewLocalDiscBlockDevice opens the image at path, creating it sized to the
// geometry when missing. An existing image is never truncated; one that is
// larger than the geometry is rejected.
func NewLocalDiscBlockDevice(path string, geometry bd.Geometry, ls log_service.LogService) (*LocalDiscBlockDevice, error) {
	if !geometry.Valid() {
		return nil, bd.ErrInvalidGeometry
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create disk directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk image: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat disk image: %w", err)
	}

	switch {
	case info.Size() > geometry.TotalSize():
		file.Close()
		return nil, fmt.Errorf("%w: image %d bytes, geometry %d bytes", bd.ErrGeometryMismatch, info.Size(), geometry.TotalSize())
	case info.Size() < geometry.TotalSize():
		if err := file.Truncate(geometry.TotalSize()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to size disk image: %w", err)
		}
		ls.Info(log_service.LogEvent{
			Message:  "Sized disk image",
			Metadata: map[string]any{"path": path, "bytes": geometry.TotalSize()},
		})
	}

	return &LocalDiscBlockDevice{
		path:     path,
		geometry: geometry,
		ls:       ls,
		file:     file,
	}, nil
}

func (d *LocalDiscBlockDevice) BlockSize() int { return d.geometry.BlockSize }

func (d *LocalDiscBlockDevice) NumBlocks() int { return d.geometry.NumBlocks }

func (d *LocalDiscBlockDevice) offset(index int) int64 {
	return int64(index) * int64(d.geometry.BlockSize)
}

func (d *LocalDiscBlockDevice) ReadBlock(index int) ([]byte, error) {
	if err := bd.CheckAccess(d, index, nil); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil, bd.ErrDeviceClosed
	}

	buf := make([]byte, d.geometry.BlockSize)
	n, err := d.file.ReadAt(buf, d.offset(index))
	if err != nil && !errors.Is(err, io.EOF) {
		d.ls.Error(log_service.LogEvent{
			Message:  "Failed to read block",
			Metadata: map[string]any{"block": index, "error": err.Error()},
		})
		return nil, fmt.Errorf("%w %d: %v", bd.ErrBlockReadFailed, index, err)
	}
	// a short image reads as zeros past EOF
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}

	return buf, nil
}

func (d *LocalDiscBlockDevice) WriteBlock(index int, data []byte) error {
	if err := bd.CheckAccess(d, index, data); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return bd.ErrDeviceClosed
	}

	if _, err := d.file.WriteAt(data, d.offset(index)); err != nil {
		d.ls.Error(log_service.LogEvent{
			Message:  "Failed to write block",
			Metadata: map[string]any{"block": index, "error": err.Error()},
		})
		return fmt.Errorf("%w %d: %v", bd.ErrBlockWriteFailed, index, err)
	}

	return nil
}

// Sync flushes the image to stable storage.
func (d *LocalDiscBlockDevice) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return bd.ErrDeviceClosed
	}
	return d.file.Sync()
}

func (d *LocalDiscBlockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}

	d.ls.Debug(log_service.LogEvent{
		Message:  "Closing disk image",
		Metadata: map[string]any{"path": d.path},
	})
	err := d.file.Close()
	d.file = nil
	return err
}

var _ bd.BlockDevice = (*LocalDiscBlockDevice)(nil)
