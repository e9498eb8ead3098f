package snapshot_service

import "errors"

var (
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrSnapshotReadFailed = errors.New("failed to read snapshot")
	ErrSnapshotSaveFailed = errors.New("failed to save snapshot")
	ErrPersistenceCorrupt = errors.New("snapshot corrupt")
	ErrGeometryMismatch   = errors.New("snapshot geometry does not match device")
	ErrInconsistent       = errors.New("snapshot metadata inconsistent with used blocks")
)
