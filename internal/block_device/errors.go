package block_device

import "errors"

var (
	ErrBlockOutOfRange  = errors.New("block index out of range")
	ErrBadBlockLength   = errors.New("block data length does not match block size")
	ErrBlockReadFailed  = errors.New("failed to read block")
	ErrBlockWriteFailed = errors.New("failed to write block")
	ErrDeviceClosed     = errors.New("block device closed")
	ErrInvalidGeometry  = errors.New("block size and block count must be positive")
	ErrGeometryMismatch = errors.New("disk image size does not match geometry")
)
