package dirhash

import (
	"strings"
)

// EntryKind is the type of a node found during traversal
type EntryKind int

const (
	RegularFile EntryKind = iota + 1
	Directory
	Symlink
)

func (k EntryKind) String() string {
	switch k {
	case RegularFile:
		return "file"
	case Directory:
		return "dir"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// DirectoryEntry is one node yielded by the Traverser. It lives only until
// the digest engine has turned it into a signature.
type DirectoryEntry struct {
	RelPath string    // Slash separated path relative to the root, "" for the root itself
	AbsPath string    // Path on disk
	Kind    EntryKind // File, directory or symlink
	Target  string    // Symlink target as stored in the link, never resolved
	Size    int64     // Lstat size, informational only
	Err     error     // Set when the entry could not be stat'ed, listed or read
}

// Readable reports whether the traverser could access the entry
func (e *DirectoryEntry) Readable() bool {
	return e.Err == nil
}

// Components returns the ordered path components from the root
func (e *DirectoryEntry) Components() []string {
	if e.RelPath == "" {
		return nil
	}
	return strings.Split(e.RelPath, "/")
}

// Depth returns the number of path components (0 for the root)
func (e *DirectoryEntry) Depth() int {
	if e.RelPath == "" {
		return 0
	}
	return strings.Count(e.RelPath, "/") + 1
}
