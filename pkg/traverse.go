package dirhash

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SymlinkPolicy selects how symbolic links take part in the digest
type SymlinkPolicy int

const (
	// SymlinkHash records each link as its own entry, signed by its target
	// string. Links are never dereferenced or descended.
	SymlinkHash SymlinkPolicy = iota
	// SymlinkIgnore leaves links out entirely, as if they did not exist
	SymlinkIgnore
)

func (p SymlinkPolicy) String() string {
	if p == SymlinkIgnore {
		return SymlinkModeIgnore
	}
	return SymlinkModeHash
}

// ParseSymlinkPolicy converts a config spelling into a policy
func ParseSymlinkPolicy(mode string) (SymlinkPolicy, error) {
	switch mode {
	case SymlinkModeHash, "follow", "all", "":
		return SymlinkHash, nil
	case SymlinkModeIgnore, "none", "absent":
		return SymlinkIgnore, nil
	default:
		return SymlinkHash, fmt.Errorf("unsupported symlink mode: %s (supported: %s, %s)", mode, SymlinkModeHash, SymlinkModeIgnore)
	}
}

// Traverser walks a directory tree in a fixed order: depth-first pre-order,
// siblings sorted byte-wise by name (see compareRelPaths). The root itself is
// the first entry, with an empty relative path.
type Traverser struct {
	RootDir       string
	symlinkPolicy SymlinkPolicy
	ignore        *IgnoreManager
}

// NewTraverser validates the root and returns a traverser for it
func NewTraverser(rootDir string, policy SymlinkPolicy, ignore *IgnoreManager) (*Traverser, error) {
	if rootDir == "" {
		return nil, newDigestError(KindInvalidRoot, "traverse", rootDir, fmt.Errorf("empty path"))
	}

	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, newDigestError(KindInvalidRoot, "traverse", rootDir, err)
	}
	if !info.IsDir() {
		return nil, newDigestError(KindInvalidRoot, "traverse", rootDir, fmt.Errorf("not a directory"))
	}

	return &Traverser{
		RootDir:       filepath.Clean(rootDir),
		symlinkPolicy: policy,
		ignore:        ignore,
	}, nil
}

// Walk streams every entry of the tree to resultChan in traversal order and
// closes the channel when done. Per-entry access failures do not stop the
// walk; they are delivered as entries with Err set. Walk only returns an
// error when ctx is cancelled.
func (t *Traverser) Walk(ctx context.Context, resultChan chan<- *DirectoryEntry) error {
	defer VerboseEnter()()
	defer close(resultChan)

	queue := newPathQueue(16)
	queue.Push("", t.RootDir)

	for {
		current, ok := queue.Pop()
		if !ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entry := t.visit(current, queue)
		if entry == nil {
			continue
		}

		if IsDebugEnabled("scan") {
			VerboseLog(3, "walk: %s %q (queued %d)", entry.Kind, entry.RelPath, queue.Length())
		}

		select {
		case resultChan <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// visit inspects one path, queues its children if it is a directory and
// returns the entry to emit, or nil when the path is to be left out.
func (t *Traverser) visit(p *pendingPath, queue *pathQueue) *DirectoryEntry {
	if t.ignore.ShouldIgnore(p.relPath) {
		return nil
	}

	entry := &DirectoryEntry{
		RelPath: p.relPath,
		AbsPath: p.absPath,
	}

	// The root is always walked as a directory, even when reached through a
	// link; the symlink policy applies below it.
	lstat := os.Lstat
	if p.relPath == "" {
		lstat = os.Stat
	}
	info, err := lstat(p.absPath)
	if err != nil {
		// Vanished or inaccessible between listing and visiting
		entry.Kind = RegularFile
		entry.Err = fmt.Errorf("lstat: %w", err)
		return entry
	}
	entry.Size = info.Size()

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		if t.symlinkPolicy == SymlinkIgnore {
			return nil
		}
		entry.Kind = Symlink
		target, err := os.Readlink(p.absPath)
		if err != nil {
			entry.Err = fmt.Errorf("readlink: %w", err)
			return entry
		}
		entry.Target = target

	case mode.IsDir():
		entry.Kind = Directory
		children, err := os.ReadDir(p.absPath)
		if err != nil {
			entry.Err = fmt.Errorf("readdir: %w", err)
			return entry
		}
		for _, child := range children {
			queue.Push(joinRelPath(p.relPath, child.Name()), filepath.Join(p.absPath, child.Name()))
		}

	case mode.IsRegular():
		entry.Kind = RegularFile

	default:
		entry.Kind = RegularFile
		entry.Err = fmt.Errorf("%w: %s", ErrUnsupportedType, mode.Type())
	}

	return entry
}

// Entries walks the tree synchronously and returns all entries in traversal
// order. Intended for small trees and tests; Walk streams instead.
func (t *Traverser) Entries(ctx context.Context) ([]*DirectoryEntry, error) {
	resultChan := make(chan *DirectoryEntry, 16)
	errChan := make(chan error, 1)
	go func() {
		errChan <- t.Walk(ctx, resultChan)
	}()

	var entries []*DirectoryEntry
	for entry := range resultChan {
		entries = append(entries, entry)
	}
	if err := <-errChan; err != nil {
		return nil, err
	}
	return entries, nil
}
