package metadata_service

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

func NewRoot() *Directory {
	return &Directory{Entries: make(map[string]*Entry)}
}

func newDirectory(name string, parent *Directory) *Directory {
	return &Directory{
		Name:    name,
		Entries: make(map[string]*Entry),
		parent:  parent,
	}
}

func (d *Directory) Parent() *Directory { return d.parent }

func (d *Directory) IsRoot() bool { return d.parent == nil }

func (d *Directory) IsEmpty() bool { return len(d.Entries) == 0 }

// Path is derived from parent links on every call.
func (d *Directory) Path() string {
	var names []string
	for cur := d; cur.parent != nil; cur = cur.parent {
		names = append(names, cur.Name)
	}
	if len(names) == 0 {
		return "/"
	}
	slices.Reverse(names)
	return "/" + strings.Join(names, "/")
}

// FullPath is the absolute path of a child called name.
func (d *Directory) FullPath(name string) string {
	p := d.Path()
	if p == "/" {
		return "/" + name
	}
	return p + "/" + name
}

func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (d *Directory) Lookup(name string) (*Entry, error) {
	entry, ok := d.Entries[name]
	if !ok {
		return nil, &PathError{Op: "lookup", Path: d.FullPath(name), Segment: name, Err: ErrNotFound}
	}
	return entry, nil
}

func (d *Directory) checkFree(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, exists := d.Entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, d.FullPath(name))
	}
	return nil
}

func (d *Directory) CreateDirectory(name string) (*Directory, error) {
	if err := d.checkFree(name); err != nil {
		return nil, err
	}
	child := newDirectory(name, d)
	d.Entries[name] = &Entry{Type: TypeDirectory, Dir: child}
	return child, nil
}

func (d *Directory) CreateFile(name string, meta *FileMetadata) error {
	if err := d.checkFree(name); err != nil {
		return err
	}
	meta.Filename = name
	d.Entries[name] = &Entry{Type: TypeFile, File: meta}
	return nil
}

// Remove unlinks name. A directory must be empty. Blocks owned by a removed
// file are the caller's to release.
func (d *Directory) Remove(name string) (*Entry, error) {
	entry, err := d.Lookup(name)
	if err != nil {
		return nil, err
	}
	if entry.Type == TypeDirectory && !entry.Dir.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotEmpty, d.FullPath(name))
	}
	delete(d.Entries, name)
	if entry.Dir != nil {
		entry.Dir.parent = nil
	}
	return entry, nil
}

// List returns entries in no particular order.
func (d *Directory) List() []DirEntry {
	out := make([]DirEntry, 0, len(d.Entries))
	for name, entry := range d.Entries {
		de := DirEntry{Name: name, Type: entry.Type}
		if entry.File != nil {
			de.Size = entry.File.Size
		}
		out = append(out, de)
	}
	return out
}

// Resolve walks path from root (absolute) or cwd (relative). "." is skipped,
// ".." moves to the parent and stays put at the root.
func Resolve(root, cwd *Directory, path string) (*Directory, error) {
	current := cwd
	if current == nil || strings.HasPrefix(path, "/") {
		current = root
	}

	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if current.parent != nil {
				current = current.parent
			}
			continue
		}

		entry, ok := current.Entries[seg]
		if !ok {
			return nil, &PathError{Op: "resolve", Path: path, Segment: seg, Err: ErrNotFound}
		}
		if entry.Type != TypeDirectory {
			return nil, &PathError{Op: "resolve", Path: path, Segment: seg, Err: ErrNotADirectory}
		}
		current = entry.Dir
	}

	return current, nil
}

// SplitPath separates the containing directory from the final name.
// "a/b" -> ("a", "b"), "/x" -> ("/", "x"), "x" -> (".", "x").
func SplitPath(path string) (dir, name string) {
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		if strings.HasPrefix(path, "/") {
			return "/", ""
		}
		return ".", ""
	}

	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return ".", trimmed
	}
	dir = trimmed[:idx]
	if dir == "" {
		dir = "/"
	}
	return dir, trimmed[idx+1:]
}

// RebuildParents restores every parent link with one top-down pass and
// checks each entry is well formed.
func RebuildParents(root *Directory) error {
	if root == nil {
		return fmt.Errorf("%w: missing root", ErrMalformedTree)
	}
	root.parent = nil
	root.Name = ""
	return rebuild(root)
}

func rebuild(dir *Directory) error {
	if dir.Entries == nil {
		dir.Entries = make(map[string]*Entry)
	}
	for name, entry := range dir.Entries {
		if entry == nil || ValidateName(name) != nil {
			return fmt.Errorf("%w: bad entry %q in %s", ErrMalformedTree, name, dir.Path())
		}
		switch entry.Type {
		case TypeDirectory:
			if entry.Dir == nil || entry.File != nil {
				return fmt.Errorf("%w: directory entry %s", ErrMalformedTree, dir.FullPath(name))
			}
			entry.Dir.Name = name
			entry.Dir.parent = dir
			if err := rebuild(entry.Dir); err != nil {
				return err
			}
		case TypeFile:
			if entry.File == nil || entry.Dir != nil {
				return fmt.Errorf("%w: file entry %s", ErrMalformedTree, dir.FullPath(name))
			}
			entry.File.Filename = name
		default:
			return fmt.Errorf("%w: entry %s has type %v", ErrMalformedTree, dir.FullPath(name), entry.Type)
		}
	}
	return nil
}

// WalkFunc is called for every entry below the walked directory.
type WalkFunc func(parent *Directory, name string, entry *Entry) error

// Walk visits entries depth first in name order.
func Walk(dir *Directory, fn WalkFunc) error {
	names := make([]string, 0, len(dir.Entries))
	for name := range dir.Entries {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		entry := dir.Entries[name]
		if err := fn(dir, name, entry); err != nil {
			return err
		}
		if entry.Type == TypeDirectory {
			if err := Walk(entry.Dir, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Count returns the number of files and directories below dir.
func Count(dir *Directory) (files, dirs int) {
	_ = Walk(dir, func(_ *Directory, _ string, entry *Entry) error {
		if entry.Type == TypeDirectory {
			dirs++
		} else {
			files++
		}
		return nil
	})
	return files, dirs
}
