package simple

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	bd "github.com/AnishMulay/sandfs/internal/block_device"
	fs "github.com/AnishMulay/sandfs/internal/file_service"
	"github.com/AnishMulay/sandfs/internal/log_service"
	ms "github.com/AnishMulay/sandfs/internal/metadata_service"
	ss "github.com/AnishMulay/sandfs/internal/snapshot_service"
)

type SimpleFileService struct {
	dev   bd.BlockDevice
	store ss.SnapshotStore
	ls    log_service.LogService

	vol         *ss.Volume
	cwd         *ms.Directory
	recoveryErr error
	started     bool
}

func NewSimpleFileService(
	dev bd.BlockDevice,
	store ss.SnapshotStore,
	ls log_service.LogService,
) *SimpleFileService {
	return &SimpleFileService{
		dev:   dev,
		store: store,
		ls:    ls,
	}
}

// --- Lifecycle ---

// Start restores the last snapshot. A missing snapshot yields an empty
// volume. An unreadable one also yields an empty volume, but the cause is
// logged and kept for RecoveryError.
func (s *SimpleFileService) Start() error {
	if s.started {
		return nil
	}
	s.ls.Info(log_service.LogEvent{
		Message:  "Starting Simple File Service",
		Metadata: map[string]any{"blockSize": s.dev.BlockSize(), "numBlocks": s.dev.NumBlocks()},
	})

	s.recoveryErr = nil
	data, err := s.store.Load()
	switch {
	case errors.Is(err, ss.ErrSnapshotNotFound):
		if err := s.freshVolume(); err != nil {
			return err
		}
		s.ls.Info(log_service.LogEvent{
			Message:  "No snapshot found, initialized empty volume",
			Metadata: map[string]any{"volumeID": s.vol.VolumeID},
		})
	case err != nil:
		if err := s.recover(fmt.Errorf("%w: %w", ss.ErrPersistenceCorrupt, err)); err != nil {
			return err
		}
	default:
		vol, err := ss.Restore(data, s.dev.BlockSize(), s.dev.NumBlocks())
		if err != nil {
			if err := s.recover(err); err != nil {
				return err
			}
			break
		}
		s.vol = vol
		files, dirs := ms.Count(vol.Root)
		s.ls.Info(log_service.LogEvent{
			Message: "Restored snapshot",
			Metadata: map[string]any{
				"volumeID":    vol.VolumeID,
				"files":       files,
				"directories": dirs,
				"freeBlocks":  vol.Allocator.FreeCount(),
			},
		})
	}

	s.cwd = s.vol.Root
	s.started = true
	return nil
}

func (s *SimpleFileService) freshVolume() error {
	vol, err := ss.NewVolume(s.dev.BlockSize(), s.dev.NumBlocks())
	if err != nil {
		return err
	}
	s.vol = vol
	return nil
}

func (s *SimpleFileService) recover(cause error) error {
	s.ls.Error(log_service.LogEvent{
		Message:  "Snapshot unusable, falling back to empty volume",
		Metadata: map[string]any{"error": cause.Error()},
	})
	if q, ok := s.store.(ss.Quarantiner); ok {
		if _, err := q.Quarantine(); err != nil {
			s.ls.Warn(log_service.LogEvent{
				Message:  "Failed to quarantine corrupt snapshot",
				Metadata: map[string]any{"error": err.Error()},
			})
		}
	}
	s.recoveryErr = cause
	return s.freshVolume()
}

func (s *SimpleFileService) Stop() error {
	if !s.started {
		return nil
	}
	s.ls.Info(log_service.LogEvent{Message: "Stopping Simple File Service"})
	s.started = false
	return s.dev.Close()
}

func (s *SimpleFileService) RecoveryError() error {
	return s.recoveryErr
}

// --- Path helpers ---

func (s *SimpleFileService) resolveDir(path string) (*ms.Directory, error) {
	if !s.started {
		return nil, fs.ErrNotStarted
	}
	return ms.Resolve(s.vol.Root, s.cwd, path)
}

// resolveParent returns the directory that holds (or would hold) path's
// final name.
func (s *SimpleFileService) resolveParent(path string) (*ms.Directory, string, error) {
	dirPath, name := ms.SplitPath(path)
	if err := ms.ValidateName(name); err != nil {
		return nil, "", err
	}
	dir, err := s.resolveDir(dirPath)
	if err != nil {
		return nil, "", err
	}
	return dir, name, nil
}

func (s *SimpleFileService) lookup(path string) (*ms.Directory, string, *ms.Entry, error) {
	dir, name, err := s.resolveParent(path)
	if err != nil {
		return nil, "", nil, err
	}
	entry, err := dir.Lookup(name)
	if err != nil {
		return nil, "", nil, err
	}
	return dir, name, entry, nil
}

func (s *SimpleFileService) lookupFile(path string) (*ms.Directory, string, *ms.FileMetadata, error) {
	dir, name, entry, err := s.lookup(path)
	if err != nil {
		return nil, "", nil, err
	}
	if entry.Type != ms.TypeFile {
		return nil, "", nil, fmt.Errorf("%w: %s", fs.ErrIsDirectory, dir.FullPath(name))
	}
	return dir, name, entry.File, nil
}

// --- Block helpers ---

// allocateBlocks takes n blocks one at a time and writes each one. fill (when
// non-nil) sets the content of the i-th block into a zeroed buffer. A request
// larger than the free count fails before anything is allocated; any later
// failure releases every block taken by this call.
func (s *SimpleFileService) allocateBlocks(n int, fill func(i int, buf []byte)) ([]int, error) {
	if free := s.vol.Allocator.FreeCount(); n > free {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Out of space",
			Metadata: map[string]any{"needed": n, "free": free},
		})
		return nil, fmt.Errorf("%w: need %d blocks, %d free", fs.ErrOutOfSpace, n, free)
	}

	blocks := make([]int, 0, n)
	buf := make([]byte, s.dev.BlockSize())
	for i := 0; i < n; i++ {
		idx, err := s.vol.Allocator.Allocate()
		if err != nil {
			s.ls.Warn(log_service.LogEvent{
				Message:  "Out of space, rolling back allocation",
				Metadata: map[string]any{"needed": n, "allocated": len(blocks)},
			})
			return nil, errors.Join(err, s.release(blocks))
		}
		blocks = append(blocks, idx)

		clear(buf)
		if fill != nil {
			fill(i, buf)
		}
		if err := s.dev.WriteBlock(idx, buf); err != nil {
			s.ls.Error(log_service.LogEvent{
				Message:  "Block write failed, rolling back allocation",
				Metadata: map[string]any{"block": idx, "error": err.Error()},
			})
			return nil, errors.Join(err, s.release(blocks))
		}
	}
	return blocks, nil
}

// writeBlocks stores data in ceil(len(data)/blockSize) fresh blocks, the
// last one zero padded.
func (s *SimpleFileService) writeBlocks(data []byte) ([]int, error) {
	bs := s.dev.BlockSize()
	return s.allocateBlocks(ms.BlocksNeeded(int64(len(data)), bs), func(i int, buf []byte) {
		start := i * bs
		copy(buf, data[start:min(start+bs, len(data))])
	})
}

func (s *SimpleFileService) readBlocks(meta *ms.FileMetadata) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(meta.Blocks) * s.dev.BlockSize())
	for _, idx := range meta.Blocks {
		data, err := s.dev.ReadBlock(idx)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	out := buf.Bytes()
	if int64(len(out)) > meta.Size {
		out = out[:meta.Size]
	}
	return out, nil
}

// release frees every block, reporting any that the allocator refused.
func (s *SimpleFileService) release(blocks []int) error {
	var errs []error
	for _, idx := range blocks {
		if err := s.vol.Allocator.Deallocate(idx); err != nil {
			s.ls.Error(log_service.LogEvent{
				Message:  "Failed to release block",
				Metadata: map[string]any{"block": idx, "error": err.Error()},
			})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Persistence ---

func (s *SimpleFileService) Snapshot() error {
	if !s.started {
		return fs.ErrNotStarted
	}
	return s.snapshot("snapshot", "")
}

// syncer is implemented by devices that buffer writes.
type syncer interface {
	Sync() error
}

// snapshot flushes block data before the metadata that points at it.
func (s *SimpleFileService) snapshot(op, path string) error {
	var err error
	if d, ok := s.dev.(syncer); ok {
		err = d.Sync()
	}
	var data []byte
	if err == nil {
		data, err = ss.Capture(s.vol)
	}
	if err == nil {
		err = s.store.Save(data)
	}
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to persist snapshot",
			Metadata: map[string]any{"op": op, "path": path, "error": err.Error()},
		})
		return fmt.Errorf("%w after %s %s: %w", fs.ErrSnapshotFailed, op, path, err)
	}
	return nil
}

// --- File Operations ---

func (s *SimpleFileService) CreateFile(path string, data []byte) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "CreateFile Request",
		Metadata: map[string]any{"path": path, "len": len(data)},
	})

	dir, name, err := s.resolveParent(path)
	if err != nil {
		return err
	}
	if _, exists := dir.Entries[name]; exists {
		return fmt.Errorf("%w: %s", fs.ErrAlreadyExists, dir.FullPath(name))
	}

	blocks, err := s.writeBlocks(data)
	if err != nil {
		return err
	}

	meta := ms.NewFileMetadata(name, s.dev.BlockSize())
	meta.Blocks = blocks
	meta.UpdateSize(int64(len(data)))
	if err := dir.CreateFile(name, meta); err != nil {
		return errors.Join(err, s.release(blocks))
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File created",
		Metadata: map[string]any{"path": dir.FullPath(name), "size": len(data), "blocks": blocks},
	})
	return s.snapshot("create_file", dir.FullPath(name))
}

func (s *SimpleFileService) ReadFile(path string) ([]byte, error) {
	_, _, meta, err := s.lookupFile(path)
	if err != nil {
		return nil, err
	}
	data, err := s.readBlocks(meta)
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to read file",
			Metadata: map[string]any{"path": path, "error": err.Error()},
		})
		return nil, err
	}
	return data, nil
}

func (s *SimpleFileService) WriteFile(path string, data []byte) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "WriteFile Request",
		Metadata: map[string]any{"path": path, "len": len(data)},
	})

	dir, name, meta, err := s.lookupFile(path)
	if err != nil {
		return err
	}

	// the new content is written to fresh blocks before the old ones go
	blocks, err := s.writeBlocks(data)
	if err != nil {
		return err
	}
	old := meta.Blocks
	meta.Blocks = blocks
	meta.UpdateSize(int64(len(data)))
	releaseErr := s.release(old)

	if err := s.snapshot("write_file", dir.FullPath(name)); err != nil {
		return err
	}
	return releaseErr
}

func (s *SimpleFileService) Truncate(path string, size int64) error {
	if size < 0 {
		return fmt.Errorf("%w: %d", fs.ErrInvalidSize, size)
	}
	dir, name, meta, err := s.lookupFile(path)
	if err != nil {
		return err
	}

	bs := s.dev.BlockSize()
	if capacity := int64(s.vol.Allocator.NumBlocks()) * int64(bs); size > capacity {
		return fmt.Errorf("%w: %d bytes exceeds volume capacity of %d", fs.ErrOutOfSpace, size, capacity)
	}
	want := ms.BlocksNeeded(size, bs)
	have := len(meta.Blocks)

	var released []int
	switch {
	case want > have:
		grown, err := s.allocateBlocks(want-have, nil)
		if err != nil {
			return err
		}
		meta.Blocks = append(meta.Blocks, grown...)
	case want < have:
		released = append([]int(nil), meta.Blocks[want:]...)
		meta.Blocks = meta.Blocks[:want:want]
	}

	// bytes past the new size inside the last block must read back as zero
	if size < meta.Size && want > 0 && size%int64(bs) != 0 {
		last := meta.Blocks[want-1]
		buf, err := s.dev.ReadBlock(last)
		if err == nil {
			clear(buf[size%int64(bs):])
			err = s.dev.WriteBlock(last, buf)
		}
		if err != nil {
			meta.Blocks = append(meta.Blocks, released...)
			return err
		}
	}

	meta.UpdateSize(size)
	releaseErr := s.release(released)

	if err := s.snapshot("truncate", dir.FullPath(name)); err != nil {
		return err
	}
	return releaseErr
}

func (s *SimpleFileService) DeleteFile(path string) error {
	dir, name, meta, err := s.lookupFile(path)
	if err != nil {
		return err
	}
	return s.deleteFile(dir, name, meta)
}

func (s *SimpleFileService) deleteFile(dir *ms.Directory, name string, meta *ms.FileMetadata) error {
	releaseErr := s.release(meta.Blocks)
	if _, err := dir.Remove(name); err != nil {
		return err
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File deleted",
		Metadata: map[string]any{"path": dir.FullPath(name), "blocks": meta.Blocks},
	})
	if err := s.snapshot("delete_file", dir.FullPath(name)); err != nil {
		return err
	}
	return releaseErr
}

func (s *SimpleFileService) Stat(path string) (ms.FileMetadata, error) {
	_, _, meta, err := s.lookupFile(path)
	if err != nil {
		return ms.FileMetadata{}, err
	}
	return meta.Clone(), nil
}

// --- Directory Operations ---

func (s *SimpleFileService) CreateDirectory(path string) error {
	dir, name, err := s.resolveParent(path)
	if err != nil {
		return err
	}
	child, err := dir.CreateDirectory(name)
	if err != nil {
		return err
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Directory created",
		Metadata: map[string]any{"path": child.Path()},
	})
	return s.snapshot("mkdir", child.Path())
}

func (s *SimpleFileService) DeleteDirectory(path string) error {
	dir, name, entry, err := s.lookup(path)
	if err != nil {
		return err
	}
	if entry.Type != ms.TypeDirectory {
		return fmt.Errorf("%w: %s", fs.ErrNotADirectory, dir.FullPath(name))
	}
	return s.deleteDirectory(dir, name, entry.Dir)
}

func (s *SimpleFileService) deleteDirectory(dir *ms.Directory, name string, target *ms.Directory) error {
	full := dir.FullPath(name)
	if _, err := dir.Remove(name); err != nil {
		return err
	}
	if s.cwd == target {
		s.cwd = dir
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Directory deleted",
		Metadata: map[string]any{"path": full},
	})
	return s.snapshot("rmdir", full)
}

func (s *SimpleFileService) DeleteEntry(path string) error {
	dir, name, entry, err := s.lookup(path)
	if err != nil {
		return err
	}
	if entry.Type == ms.TypeDirectory {
		return s.deleteDirectory(dir, name, entry.Dir)
	}
	return s.deleteFile(dir, name, entry.File)
}

func (s *SimpleFileService) ChangeDirectory(path string) error {
	dir, err := s.resolveDir(path)
	if err != nil {
		return err
	}
	s.cwd = dir
	return nil
}

func (s *SimpleFileService) ListDirectory(path string) ([]ms.DirEntry, error) {
	dir, err := s.resolveDir(path)
	if err != nil {
		return nil, err
	}
	entries := dir.List()
	slices.SortFunc(entries, func(a, b ms.DirEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries, nil
}

func (s *SimpleFileService) CurrentPath() string {
	if s.cwd == nil {
		return "/"
	}
	return s.cwd.Path()
}

// --- Volume ---

func (s *SimpleFileService) GetFsStat() fs.FsStat {
	if !s.started {
		return fs.FsStat{BlockSize: s.dev.BlockSize(), TotalBlocks: s.dev.NumBlocks()}
	}
	files, dirs := ms.Count(s.vol.Root)
	return fs.FsStat{
		VolumeID:    s.vol.VolumeID,
		BlockSize:   s.dev.BlockSize(),
		TotalBlocks: s.vol.Allocator.NumBlocks(),
		UsedBlocks:  s.vol.Allocator.UsedCount(),
		FreeBlocks:  s.vol.Allocator.FreeCount(),
		Files:       files,
		Directories: dirs,
	}
}

var _ fs.FileService = (*SimpleFileService)(nil)
