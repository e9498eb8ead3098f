package localdisc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AnishMulay/sandfs/internal/log_service"
	ss "github.com/AnishMulay/sandfs/internal/snapshot_service"
)

// LocalDiscSnapshotStore keeps the snapshot as <dir>/<name>. Saves go through
// a temp file and a rename so a crash leaves either the old or the new blob.
type LocalDiscSnapshotStore struct {
	dir  string
	name string
	ls   log_service.LogService
}

func NewLocalDiscSnapshotStore(dir, name string, ls log_service.LogService) (*LocalDiscSnapshotStore, error) {
	if name == "" {
		name = ss.DefaultSnapshotName
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &LocalDiscSnapshotStore{dir: dir, name: name, ls: ls}, nil
}

func (s *LocalDiscSnapshotStore) Path() string {
	return filepath.Join(s.dir, s.name)
}

func (s *LocalDiscSnapshotStore) Save(data []byte) error {
	tmp, err := os.CreateTemp(s.dir, s.name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ss.ErrSnapshotSaveFailed, err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to save snapshot",
			Metadata: map[string]any{"path": s.Path(), "error": cause.Error()},
		})
		return fmt.Errorf("%w: %v", ss.ErrSnapshotSaveFailed, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ss.ErrSnapshotSaveFailed, err)
	}

	s.ls.Debug(log_service.LogEvent{
		Message:  "Snapshot saved",
		Metadata: map[string]any{"path": s.Path(), "bytes": len(data)},
	})
	return nil
}

func (s *LocalDiscSnapshotStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ss.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%w: %v", ss.ErrSnapshotReadFailed, err)
	}
	return data, nil
}

// Quarantine renames the current blob out of the way and returns its new path.
func (s *LocalDiscSnapshotStore) Quarantine() (string, error) {
	dst := fmt.Sprintf("%s.corrupt-%s", s.Path(), uuid.NewString()[:8])
	if err := os.Rename(s.Path(), dst); err != nil {
		return "", err
	}
	s.ls.Warn(log_service.LogEvent{
		Message:  "Quarantined snapshot",
		Metadata: map[string]any{"from": s.Path(), "to": dst},
	})
	return dst, nil
}

var (
	_ ss.SnapshotStore = (*LocalDiscSnapshotStore)(nil)
	_ ss.Quarantiner   = (*LocalDiscSnapshotStore)(nil)
)
