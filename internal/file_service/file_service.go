package file_service

import (
	ms "github.com/AnishMulay/sandfs/internal/metadata_service"
)

// FileService is the storage engine surface consumed by the shell and the
// MCP server. Every path accepts absolute or relative syntax. Implementations
// hold the current directory as session state and are not safe for
// concurrent use.
type FileService interface {
	// --- Lifecycle ---
	Start() error
	Stop() error

	// --- Files ---
	CreateFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces the content of an existing file.
	WriteFile(path string, data []byte) error
	Truncate(path string, size int64) error
	DeleteFile(path string) error
	Stat(path string) (ms.FileMetadata, error)

	// --- Directories ---
	CreateDirectory(path string) error
	// DeleteDirectory only removes empty directories.
	DeleteDirectory(path string) error
	// DeleteEntry removes a file or an empty directory.
	DeleteEntry(path string) error
	ChangeDirectory(path string) error
	// ListDirectory returns entries sorted by name.
	ListDirectory(path string) ([]ms.DirEntry, error)
	CurrentPath() string

	// --- Volume ---
	GetFsStat() FsStat
	// Snapshot persists the current state on demand.
	Snapshot() error
	// RecoveryError reports why the last Start fell back to an empty volume,
	// or nil.
	RecoveryError() error
}

type FsStat struct {
	VolumeID    string `json:"volume_id"`
	BlockSize   int    `json:"block_size"`
	TotalBlocks int    `json:"total_blocks"`
	UsedBlocks  int    `json:"used_blocks"`
	FreeBlocks  int    `json:"free_blocks"`
	Files       int    `json:"files"`
	Directories int    `json:"directories"`
}
