package file_service

import (
	"errors"

	ba "github.com/AnishMulay/sandfs/internal/block_allocator"
	ms "github.com/AnishMulay/sandfs/internal/metadata_service"
	ss "github.com/AnishMulay/sandfs/internal/snapshot_service"
)

// Error kinds surfaced by FileService. Match with errors.Is.
var (
	ErrNotFound           = ms.ErrNotFound
	ErrAlreadyExists      = ms.ErrAlreadyExists
	ErrDirectoryNotEmpty  = ms.ErrDirectoryNotEmpty
	ErrNotADirectory      = ms.ErrNotADirectory
	ErrIsDirectory        = ms.ErrIsDirectory
	ErrInvalidName        = ms.ErrInvalidName
	ErrOutOfSpace         = ba.ErrOutOfSpace
	ErrInvalidBlock       = ba.ErrInvalidBlock
	ErrPersistenceCorrupt = ss.ErrPersistenceCorrupt

	ErrSnapshotFailed = errors.New("failed to persist snapshot")
	ErrNotStarted     = errors.New("file service not started")
	ErrInvalidSize    = errors.New("invalid file size")
)
