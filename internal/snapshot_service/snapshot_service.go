package snapshot_service

import (
	"time"

	ms "github.com/AnishMulay/sandfs/internal/metadata_service"
)

const (
	SnapshotVersion     = 1
	DefaultSnapshotName = "fs_metadata.json"
)

// SnapshotStore holds a single blob under a well-known name. Every Save
// replaces the previous blob wholesale.
type SnapshotStore interface {
	Save(data []byte) error
	// Load returns ErrSnapshotNotFound when nothing was ever saved.
	Load() ([]byte, error)
}

// Quarantiner is implemented by stores that can set an unreadable blob aside
// so the next Save does not destroy the evidence.
type Quarantiner interface {
	Quarantine() (string, error)
}

// Snapshot is the persisted form of a volume: the parent-free directory tree
// and the allocator's used set.
type Snapshot struct {
	Version    int           `json:"version"`
	VolumeID   string        `json:"volume_id"`
	BlockSize  int           `json:"block_size"`
	NumBlocks  int           `json:"num_blocks"`
	CreatedAt  time.Time     `json:"created_at"`
	SavedAt    time.Time     `json:"saved_at"`
	Root       *ms.Directory `json:"root"`
	UsedBlocks []byte        `json:"used_blocks"`
}
