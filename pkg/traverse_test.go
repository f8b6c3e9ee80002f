package dirhash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildTree creates files (content by relative path) and directories (trailing /)
func buildTree(t *testing.T, root string, layout map[string]string) {
	t.Helper()
	for rel, content := range layout {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(full, 0755); err != nil {
				t.Fatalf("Failed to create directory %s: %v", rel, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create parent of %s: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

func walkEntries(t *testing.T, root string, policy SymlinkPolicy, exclude ...string) []*DirectoryEntry {
	t.Helper()
	ignore, err := NewIgnoreManager(exclude)
	if err != nil {
		t.Fatalf("Failed to compile excludes: %v", err)
	}
	traverser, err := NewTraverser(root, policy, ignore)
	if err != nil {
		t.Fatalf("Failed to create traverser: %v", err)
	}
	entries, err := traverser.Entries(context.Background())
	if err != nil {
		t.Fatalf("Failed to walk: %v", err)
	}
	return entries
}

func describeEntries(entries []*DirectoryEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Kind.String() + ":" + e.RelPath
	}
	return strings.Join(parts, " ")
}

func TestTraverserOrder(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"b":        "b",
		"a.txt":    "a",
		"a/z":      "z",
		"a/y/":     "",
		"a-b":      "dash",
		"B":        "upper",
		"empty/":   "",
		"a/y/deep": "deep",
	})

	entries := walkEntries(t, root, SymlinkHash)

	expected := "dir: file:B dir:a dir:a/y file:a/y/deep file:a/z file:a-b file:a.txt file:b dir:empty"
	if got := describeEntries(entries); got != expected {
		t.Errorf("Unexpected traversal order\n got: %s\nwant: %s", got, expected)
	}

	if entries[0].RelPath != "" || entries[0].AbsPath != filepath.Clean(root) {
		t.Errorf("Expected root entry first, got %+v", entries[0])
	}
	for _, e := range entries {
		if !e.Readable() {
			t.Errorf("Unexpected error entry %s: %v", e.RelPath, e.Err)
		}
	}
}

func TestTraverserSymlinks(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"dir/file": "content",
		"file":     "content",
	})
	symlinkOrSkip(t, "file", filepath.Join(root, "link"))
	symlinkOrSkip(t, "dir", filepath.Join(root, "dirlink"))
	symlinkOrSkip(t, "missing-target", filepath.Join(root, "dangling"))

	entries := walkEntries(t, root, SymlinkHash)
	expected := "dir: symlink:dangling dir:dir file:dir/file symlink:dirlink file:file symlink:link"
	if got := describeEntries(entries); got != expected {
		t.Errorf("Unexpected entries with symlinks hashed\n got: %s\nwant: %s", got, expected)
	}

	targets := map[string]string{}
	for _, e := range entries {
		if e.Kind == Symlink {
			targets[e.RelPath] = e.Target
		}
	}
	if targets["link"] != "file" || targets["dirlink"] != "dir" || targets["dangling"] != "missing-target" {
		t.Errorf("Unexpected symlink targets: %v", targets)
	}

	entries = walkEntries(t, root, SymlinkIgnore)
	expected = "dir: dir:dir file:dir/file file:file"
	if got := describeEntries(entries); got != expected {
		t.Errorf("Unexpected entries with symlinks ignored\n got: %s\nwant: %s", got, expected)
	}
}

func TestTraverserExclude(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		".git/HEAD":   "ref",
		".git/config": "cfg",
		"src/main.go": "package main",
		"src/tmp.bak": "old",
		"README":      "readme",
	})

	entries := walkEntries(t, root, SymlinkHash, `(^|/)\.git$`, `\.bak$`)
	expected := "dir: file:README dir:src file:src/main.go"
	if got := describeEntries(entries); got != expected {
		t.Errorf("Unexpected entries with excludes\n got: %s\nwant: %s", got, expected)
	}
}

func TestTraverserUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"locked/secret": "hidden",
		"open":          "visible",
	})
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	defer os.Chmod(locked, 0755)

	entries := walkEntries(t, root, SymlinkHash)
	expected := "dir: dir:locked file:open"
	if got := describeEntries(entries); got != expected {
		t.Errorf("Unexpected entries\n got: %s\nwant: %s", got, expected)
	}
	if entries[1].Err == nil || !errors.Is(entries[1].Err, os.ErrPermission) {
		t.Errorf("Expected permission error on locked directory, got %v", entries[1].Err)
	}
}

func TestNewTraverserInvalidRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	for _, path := range []string{"", filepath.Join(root, "missing"), file} {
		_, err := NewTraverser(path, SymlinkHash, nil)
		if !errors.Is(err, ErrInvalidRoot) {
			t.Errorf("Expected ErrInvalidRoot for %q, got %v", path, err)
		}
		if ErrorKindOf(err) != KindInvalidRoot {
			t.Errorf("Expected KindInvalidRoot for %q, got %v", path, ErrorKindOf(err))
		}
	}
}

func TestTraverserCancelled(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"a": "a", "b": "b"})

	traverser, err := NewTraverser(root, SymlinkHash, nil)
	if err != nil {
		t.Fatalf("Failed to create traverser: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := traverser.Entries(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDirectoryEntryPath(t *testing.T) {
	root := &DirectoryEntry{RelPath: ""}
	if root.Depth() != 0 || root.Components() != nil {
		t.Errorf("Expected root to have no components, got %v", root.Components())
	}

	nested := &DirectoryEntry{RelPath: "a/b/c", Kind: RegularFile}
	if nested.Depth() != 3 {
		t.Errorf("Expected depth 3, got %d", nested.Depth())
	}
	if strings.Join(nested.Components(), ",") != "a,b,c" {
		t.Errorf("Unexpected components: %v", nested.Components())
	}
}

func TestParseSymlinkPolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected SymlinkPolicy
		wantErr  bool
	}{
		{"", SymlinkHash, false},
		{"hash", SymlinkHash, false},
		{"ignore", SymlinkIgnore, false},
		{"none", SymlinkIgnore, false},
		{"deref", SymlinkHash, true},
	}
	for _, tt := range tests {
		got, err := ParseSymlinkPolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSymlinkPolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.expected {
			t.Errorf("ParseSymlinkPolicy(%q) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
	if SymlinkIgnore.String() != SymlinkModeIgnore || SymlinkHash.String() != SymlinkModeHash {
		t.Error("Unexpected policy names")
	}
}
