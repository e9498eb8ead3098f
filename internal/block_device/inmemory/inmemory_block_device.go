package inmemory

import (
	"sync"

	bd "github.com/AnishMulay/sandfs/internal/block_device"
)

type InMemoryBlockDevice struct {
	mu       sync.Mutex
	geometry bd.Geometry
	data     []byte
	closed   bool

	// FailWrites makes every WriteBlock for the listed indices fail.
	FailWrites map[int]bool
}

func NewInMemoryBlockDevice(geometry bd.Geometry) (*InMemoryBlockDevice, error) {
	if !geometry.Valid() {
		return nil, bd.ErrInvalidGeometry
	}
	return &InMemoryBlockDevice{
		geometry:   geometry,
		data:       make([]byte, geometry.TotalSize()),
		FailWrites: make(map[int]bool),
	}, nil
}

func (d *InMemoryBlockDevice) BlockSize() int { return d.geometry.BlockSize }

func (d *InMemoryBlockDevice) NumBlocks() int { return d.geometry.NumBlocks }

func (d *InMemoryBlockDevice) span(index int) (int, int) {
	start := index * d.geometry.BlockSize
	return start, start + d.geometry.BlockSize
}

func (d *InMemoryBlockDevice) ReadBlock(index int) ([]byte, error) {
	if err := bd.CheckAccess(d, index, nil); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, bd.ErrDeviceClosed
	}

	start, end := d.span(index)
	out := make([]byte, d.geometry.BlockSize)
	copy(out, d.data[start:end])
	return out, nil
}

func (d *InMemoryBlockDevice) WriteBlock(index int, data []byte) error {
	if err := bd.CheckAccess(d, index, data); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return bd.ErrDeviceClosed
	}
	if d.FailWrites[index] {
		return bd.ErrBlockWriteFailed
	}

	start, end := d.span(index)
	copy(d.data[start:end], data)
	return nil
}

func (d *InMemoryBlockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

var _ bd.BlockDevice = (*InMemoryBlockDevice)(nil)
