package bitmap

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"

	ba "github.com/AnishMulay/sandfs/internal/block_allocator"
)

// BitmapAllocator keeps the free set in a roaring bitmap. The minimum of the
// free set is always the next block handed out, so allocation order depends
// only on state.
type BitmapAllocator struct {
	numBlocks int
	free      *roaring.Bitmap
}

// NewBitmapAllocator returns an allocator with every block free.
func NewBitmapAllocator(numBlocks int) (*BitmapAllocator, error) {
	if numBlocks <= 0 || int64(numBlocks) > math.MaxUint32 {
		return nil, ba.ErrInvalidCapacity
	}
	free := roaring.New()
	free.AddRange(0, uint64(numBlocks))
	return &BitmapAllocator{numBlocks: numBlocks, free: free}, nil
}

// FromUsed rebuilds an allocator from a used set produced by MarshalBinary.
func FromUsed(numBlocks int, data []byte) (*BitmapAllocator, error) {
	a, err := NewBitmapAllocator(numBlocks)
	if err != nil {
		return nil, err
	}

	used := roaring.New()
	if len(data) > 0 {
		if err := used.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("decode used set: %w", err)
		}
	}
	if !used.IsEmpty() && int(used.Maximum()) >= numBlocks {
		return nil, fmt.Errorf("%w: used block %d beyond %d blocks", ba.ErrInvalidBlock, used.Maximum(), numBlocks)
	}

	a.free.AndNot(used)
	return a, nil
}

func (a *BitmapAllocator) inRange(index int) bool {
	return index >= 0 && index < a.numBlocks
}

func (a *BitmapAllocator) NumBlocks() int {
	return a.numBlocks
}

func (a *BitmapAllocator) Allocate() (int, error) {
	if a.free.IsEmpty() {
		return 0, ba.ErrOutOfSpace
	}
	idx := a.free.Minimum()
	a.free.Remove(idx)
	return int(idx), nil
}

func (a *BitmapAllocator) Deallocate(index int) error {
	if !a.inRange(index) {
		return fmt.Errorf("%w: %d out of range [0,%d)", ba.ErrInvalidBlock, index, a.numBlocks)
	}
	if !a.free.CheckedAdd(uint32(index)) {
		return fmt.Errorf("%w: %d already free", ba.ErrInvalidBlock, index)
	}
	return nil
}

func (a *BitmapAllocator) IsUsed(index int) bool {
	return a.inRange(index) && !a.free.Contains(uint32(index))
}

func (a *BitmapAllocator) FreeCount() int {
	return int(a.free.GetCardinality())
}

func (a *BitmapAllocator) UsedCount() int {
	return a.numBlocks - a.FreeCount()
}

func (a *BitmapAllocator) used() *roaring.Bitmap {
	return roaring.Flip(a.free, 0, uint64(a.numBlocks))
}

func (a *BitmapAllocator) UsedBlocks() []int {
	raw := a.used().ToArray()
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out
}

func (a *BitmapAllocator) MarshalBinary() ([]byte, error) {
	used := a.used()
	used.RunOptimize()
	return used.MarshalBinary()
}

var _ ba.BlockAllocator = (*BitmapAllocator)(nil)
