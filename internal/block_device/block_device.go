package block_device

// BlockDevice is a fixed-geometry array of equally sized blocks addressed by
// index. Geometry is set when the device is opened and never changes.
type BlockDevice interface {
	// ReadBlock returns exactly BlockSize() bytes.
	ReadBlock(index int) ([]byte, error)
	// WriteBlock requires len(data) == BlockSize().
	WriteBlock(index int, data []byte) error
	BlockSize() int
	NumBlocks() int
	Close() error
}

// Geometry describes a volume's block layout.
type Geometry struct {
	BlockSize int
	NumBlocks int
}

func (g Geometry) Valid() bool {
	return g.BlockSize > 0 && g.NumBlocks > 0
}

// TotalSize is the byte length of a device with this geometry.
func (g Geometry) TotalSize() int64 {
	return int64(g.BlockSize) * int64(g.NumBlocks)
}

// CheckAccess validates an index and, when data is non-nil, its length.
func CheckAccess(dev BlockDevice, index int, data []byte) error {
	if index < 0 || index >= dev.NumBlocks() {
		return ErrBlockOutOfRange
	}
	if data != nil && len(data) != dev.BlockSize() {
		return ErrBadBlockLength
	}
	return nil
}
