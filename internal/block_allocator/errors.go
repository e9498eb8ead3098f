package block_allocator

import "errors"

var (
	ErrOutOfSpace      = errors.New("no free blocks available")
	ErrInvalidBlock    = errors.New("invalid block")
	ErrInvalidCapacity = errors.New("block count must be positive")
)
