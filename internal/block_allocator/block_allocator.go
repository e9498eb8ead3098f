package block_allocator

// BlockAllocator tracks free/used state for block indices [0, NumBlocks()).
// It never touches the device.
type BlockAllocator interface {
	NumBlocks() int

	// Allocate marks the lowest-index free block used and returns it.
	Allocate() (int, error)
	// Deallocate marks a used block free.
	Deallocate(index int) error

	IsUsed(index int) bool
	FreeCount() int
	UsedCount() int

	// UsedBlocks lists every used index in ascending order.
	UsedBlocks() []int

	// MarshalBinary serializes the used set for a snapshot.
	MarshalBinary() ([]byte, error)
}
