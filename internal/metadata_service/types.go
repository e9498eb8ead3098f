package metadata_service

import (
	"fmt"
	"time"
)

type InodeType int

const (
	TypeFile InodeType = iota
	TypeDirectory
)

func (t InodeType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	default:
		return fmt.Sprintf("InodeType(%d)", int(t))
	}
}

func (t InodeType) MarshalText() ([]byte, error) {
	switch t {
	case TypeFile, TypeDirectory:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown inode type %d", int(t))
	}
}

func (t *InodeType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "file":
		*t = TypeFile
	case "directory":
		*t = TypeDirectory
	default:
		return fmt.Errorf("unknown inode type %q", text)
	}
	return nil
}

// FileMetadata maps a file's logical bytes onto blocks. Byte range
// [i*BlockSize, min((i+1)*BlockSize, Size)) lives in Blocks[i]; the rest of
// the last block is zero.
type FileMetadata struct {
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Blocks     []int     `json:"blocks"`
	BlockSize  int       `json:"block_size"`
}

func NewFileMetadata(filename string, blockSize int) *FileMetadata {
	now := time.Now()
	return &FileMetadata{
		Filename:   filename,
		CreatedAt:  now,
		ModifiedAt: now,
		Blocks:     []int{},
		BlockSize:  blockSize,
	}
}

// BlocksNeeded is ceil(size / blockSize).
func BlocksNeeded(size int64, blockSize int) int {
	if size <= 0 {
		return 0
	}
	bs := int64(blockSize)
	return int(size/bs + min(size%bs, 1))
}

func (m *FileMetadata) AddBlock(index int) {
	m.Blocks = append(m.Blocks, index)
}

func (m *FileMetadata) UpdateSize(size int64) {
	m.Size = size
	m.ModifiedAt = time.Now()
}

// Clone returns a deep copy safe to hand to callers.
func (m *FileMetadata) Clone() FileMetadata {
	out := *m
	out.Blocks = make([]int, len(m.Blocks))
	copy(out.Blocks, m.Blocks)
	return out
}

// Directory is a node of the namespace tree. parent is navigational only and
// is never serialized; RebuildParents restores it after a load.
type Directory struct {
	Name    string            `json:"name"`
	Entries map[string]*Entry `json:"entries"`

	parent *Directory
}

// Entry is a named child of a directory: exactly one of File or Dir is set,
// matching Type.
type Entry struct {
	Type InodeType     `json:"type"`
	File *FileMetadata `json:"file,omitempty"`
	Dir  *Directory    `json:"dir,omitempty"`
}

// DirEntry is one line of a directory listing.
type DirEntry struct {
	Name string    `json:"name"`
	Type InodeType `json:"type"`
	Size int64     `json:"size"`
}
