//go:build unix

package dirhash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestTraverserSpecialFile(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"regular": "data"})
	if err := unix.Mkfifo(filepath.Join(root, "pipe"), 0644); err != nil {
		t.Skipf("mkfifo not supported: %v", err)
	}

	entries := walkEntries(t, root, SymlinkHash)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %s", describeEntries(entries))
	}
	pipe := entries[1]
	if pipe.RelPath != "pipe" || !errors.Is(pipe.Err, ErrUnsupportedType) {
		t.Errorf("Expected pipe to carry ErrUnsupportedType, got %+v", pipe)
	}

	_, err := ComputeDirectoryDigest(root, "md5", DefaultChunkSize, SymlinkHash)
	if !errors.Is(err, ErrUnreadableEntry) {
		t.Fatalf("Expected ErrUnreadableEntry for special file, got %v", err)
	}
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType in the chain, got %v", err)
	}

	var de *DigestError
	if !errors.As(err, &de) || de.Path != "pipe" {
		t.Errorf("Expected failing path 'pipe', got %v", err)
	}
}

func TestHashFileChunkedRejectsNonRegular(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"target": "secret"})
	symlinkOrSkip(t, "target", filepath.Join(root, "link"))
	if err := unix.Mkfifo(filepath.Join(root, "pipe"), 0644); err != nil {
		t.Skipf("mkfifo not supported: %v", err)
	}
	algorithm, _ := GetHashAlgorithm("md5")

	if _, _, err := HashFileChunked(context.Background(), filepath.Join(root, "link"), algorithm, 1000); err == nil {
		t.Error("Expected a symlink to be refused, not followed")
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := HashFileChunked(context.Background(), filepath.Join(root, "pipe"), algorithm, 1000)
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Expected ErrUnsupportedType for fifo, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Hashing a fifo blocked")
	}
}

// A file replaced by a link after it was listed must fail as unreadable
func TestHashWorkerEntryReplacedByLink(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"target": "secret", "file": "data"})

	dh, err := NewDirHasher(DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create hasher: %v", err)
	}

	path := filepath.Join(root, "file")
	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	symlinkOrSkip(t, "target", path)

	job := &hashJob{
		entry: &DirectoryEntry{Kind: RegularFile, RelPath: "file", AbsPath: path},
		done:  make(chan struct{}),
	}
	jobChan := make(chan *hashJob, 1)
	jobChan <- job
	close(jobChan)
	dh.hashWorker(context.Background(), jobChan)

	<-job.done
	if job.sig != nil {
		t.Error("Expected no signature for a replaced entry")
	}
	if ErrorKindOf(job.err) != KindUnreadableEntry {
		t.Errorf("Expected KindUnreadableEntry, got %v", job.err)
	}
}
