package snapshot_service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AnishMulay/sandfs/internal/block_allocator/bitmap"
	ms "github.com/AnishMulay/sandfs/internal/metadata_service"
)

// Volume is the live state a snapshot is taken from and restored into.
type Volume struct {
	VolumeID  string
	CreatedAt time.Time
	BlockSize int
	Root      *ms.Directory
	Allocator *bitmap.BitmapAllocator
}

// NewVolume is an empty namespace with every block free.
func NewVolume(blockSize, numBlocks int) (*Volume, error) {
	alloc, err := bitmap.NewBitmapAllocator(numBlocks)
	if err != nil {
		return nil, err
	}
	return &Volume{
		VolumeID:  uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		BlockSize: blockSize,
		Root:      ms.NewRoot(),
		Allocator: alloc,
	}, nil
}

// Capture serializes the volume. Parent links are never written.
func Capture(v *Volume) ([]byte, error) {
	used, err := v.Allocator.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode used set: %w", err)
	}

	snap := Snapshot{
		Version:    SnapshotVersion,
		VolumeID:   v.VolumeID,
		BlockSize:  v.BlockSize,
		NumBlocks:  v.Allocator.NumBlocks(),
		CreatedAt:  v.CreatedAt,
		SavedAt:    time.Now().UTC(),
		Root:       v.Root,
		UsedBlocks: used,
	}

	return json.MarshalIndent(snap, "", "  ")
}

// Decode parses a blob without interpreting it. Any failure wraps
// ErrPersistenceCorrupt.
func Decode(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrPersistenceCorrupt, snap.Version)
	}
	if _, err := uuid.Parse(snap.VolumeID); err != nil {
		return nil, fmt.Errorf("%w: volume id: %v", ErrPersistenceCorrupt, err)
	}
	if snap.Root == nil {
		return nil, fmt.Errorf("%w: missing root directory", ErrPersistenceCorrupt)
	}
	return &snap, nil
}

// Restore rebuilds a volume from a blob: parent links are re-derived from the
// root, the allocator comes straight from the persisted used set, and every
// file's block list is checked against it.
func Restore(data []byte, blockSize, numBlocks int) (*Volume, error) {
	snap, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if snap.BlockSize != blockSize || snap.NumBlocks != numBlocks {
		return nil, fmt.Errorf("%w: %w: snapshot %dx%d, device %dx%d", ErrPersistenceCorrupt, ErrGeometryMismatch,
			snap.NumBlocks, snap.BlockSize, numBlocks, blockSize)
	}

	if err := ms.RebuildParents(snap.Root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceCorrupt, err)
	}

	alloc, err := bitmap.FromUsed(numBlocks, snap.UsedBlocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceCorrupt, err)
	}

	vol := &Volume{
		VolumeID:  snap.VolumeID,
		CreatedAt: snap.CreatedAt,
		BlockSize: snap.BlockSize,
		Root:      snap.Root,
		Allocator: alloc,
	}
	if err := CheckConsistency(vol); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceCorrupt, err)
	}
	return vol, nil
}

// CheckConsistency verifies that the union of all files' blocks is a subset
// of the used set, that no block is shared, and that each block list has the
// length its size requires.
func CheckConsistency(v *Volume) error {
	owner := make(map[int]string)
	return ms.Walk(v.Root, func(parent *ms.Directory, name string, entry *ms.Entry) error {
		if entry.Type != ms.TypeFile {
			return nil
		}
		path := parent.FullPath(name)
		f := entry.File

		if f.BlockSize != v.BlockSize {
			return fmt.Errorf("%w: %s has block size %d", ErrInconsistent, path, f.BlockSize)
		}
		if f.Size < 0 {
			return fmt.Errorf("%w: %s has negative size", ErrInconsistent, path)
		}
		if want := ms.BlocksNeeded(f.Size, f.BlockSize); len(f.Blocks) != want {
			return fmt.Errorf("%w: %s has %d blocks, size needs %d", ErrInconsistent, path, len(f.Blocks), want)
		}
		for _, b := range f.Blocks {
			if !v.Allocator.IsUsed(b) {
				return fmt.Errorf("%w: %s references free block %d", ErrInconsistent, path, b)
			}
			if other, dup := owner[b]; dup {
				return fmt.Errorf("%w: block %d shared by %s and %s", ErrInconsistent, b, other, path)
			}
			owner[b] = path
		}
		return nil
	})
}
