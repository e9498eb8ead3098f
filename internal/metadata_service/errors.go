package metadata_service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("no such file or directory")
	ErrAlreadyExists     = errors.New("file exists")
	ErrNotADirectory     = errors.New("not a directory")
	ErrIsDirectory       = errors.New("is a directory")
	ErrDirectoryNotEmpty = errors.New("directory not empty")
	ErrInvalidName       = errors.New("invalid name")
	ErrMalformedTree     = errors.New("malformed directory tree")
)

// PathError records the segment at which path resolution stopped.
type PathError struct {
	Op      string
	Path    string
	Segment string
	Err     error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %q: %v", e.Op, e.Path, e.Segment, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Is lets a file standing where a directory was expected match ErrNotFound.
func (e *PathError) Is(target error) bool {
	return target == ErrNotFound && e.Err == ErrNotADirectory
}
