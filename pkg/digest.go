package dirhash

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a digest computation. The zero value is not valid; start
// from DefaultOptions.
type Options struct {
	Algorithm     string        // Name of the hash algorithm, see SupportedHashAlgorithms
	ChunkSize     int           // Maximum bytes read from a file per I/O call
	SymlinkPolicy SymlinkPolicy // Hash links by target string, or leave them out
	Workers       int           // Concurrent file hashing workers, 0 for the default
	Exclude       []string      // Regular expressions matched against relative paths
}

// DefaultOptions returns the options used by the command when nothing is configured
func DefaultOptions() Options {
	return Options{
		Algorithm:     DefaultAlgorithm,
		ChunkSize:     DefaultChunkSize,
		SymlinkPolicy: SymlinkHash,
		Workers:       DefaultHashWorkers,
	}
}

// Result is the outcome of a successful digest computation
type Result struct {
	Root        string        `json:"root"`
	Digest      string        `json:"digest"`
	Algorithm   string        `json:"algorithm"`
	ChunkSize   int           `json:"chunk_size"`
	Symlinks    string        `json:"symlinks"`
	Files       int           `json:"files"`
	Directories int           `json:"directories"`
	Links       int           `json:"links"`
	Bytes       int64         `json:"bytes"`
	Duration    time.Duration `json:"-"`
}

// Entries returns the number of entries folded into the digest
func (r *Result) Entries() int {
	return r.Files + r.Directories + r.Links
}

// DirHasher computes directory digests for one configuration. It holds no
// per-run state and may be used for several roots, also concurrently.
type DirHasher struct {
	opts      Options
	algorithm *HashAlgorithm
	ignore    *IgnoreManager
	workers   int
}

// NewDirHasher validates options before any filesystem access. The algorithm
// is checked first, so an unknown name is always reported as such.
func NewDirHasher(opts Options) (*DirHasher, error) {
	algorithm, err := GetHashAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, newDigestError(KindUnsupportedAlgorithm, "configure", "", err)
	}

	if opts.ChunkSize <= 0 {
		return nil, newDigestError(KindInvalidChunkSize, "configure", "",
			fmt.Errorf("chunk size must be positive, got %d", opts.ChunkSize))
	}

	workers := opts.Workers
	if workers == 0 {
		workers = DefaultHashWorkers
	}
	if err := ValidateHashWorkers(workers); err != nil {
		return nil, newDigestError(KindInvalidOptions, "configure", "", err)
	}

	ignore, err := NewIgnoreManager(opts.Exclude)
	if err != nil {
		return nil, newDigestError(KindInvalidOptions, "configure", "", err)
	}

	return &DirHasher{
		opts:      opts,
		algorithm: algorithm,
		ignore:    ignore,
		workers:   workers,
	}, nil
}

// Algorithm returns the resolved hash algorithm
func (dh *DirHasher) Algorithm() *HashAlgorithm {
	return dh.algorithm
}

// Options returns the configuration the hasher was built with
func (dh *DirHasher) Options() Options {
	return dh.opts
}

// hashJob carries one entry through the pipeline. done is closed once sig or
// err is set; the combiner waits on it in traversal order.
type hashJob struct {
	seq   uint64
	entry *DirectoryEntry
	sig   []byte
	size  int64
	err   error
	done  chan struct{}
}

// Digest computes the digest of the tree at rootDir. File contents are hashed
// by a worker pool while a single combiner folds the signatures strictly in
// traversal order. The first unreadable entry in traversal order aborts the
// run and no digest is returned.
func (dh *DirHasher) Digest(ctx context.Context, rootDir string) (*Result, error) {
	defer VerboseEnter()()
	start := time.Now()

	traverser, err := NewTraverser(rootDir, dh.opts.SymlinkPolicy, dh.ignore)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Root:      traverser.RootDir,
		Algorithm: dh.algorithm.Name,
		ChunkSize: dh.opts.ChunkSize,
		Symlinks:  dh.opts.SymlinkPolicy.String(),
	}

	g, gctx := errgroup.WithContext(ctx)

	// In-flight jobs are bounded by the ordered queue, which bounds open
	// files and buffers to the worker count.
	entryChan := make(chan *DirectoryEntry, 64)
	jobChan := make(chan *hashJob, dh.workers)
	orderedChan := make(chan *hashJob, dh.workers*4)

	g.Go(func() error {
		return traverser.Walk(gctx, entryChan)
	})

	g.Go(func() error {
		return dh.dispatch(gctx, entryChan, jobChan, orderedChan)
	})

	for i := 0; i < dh.workers; i++ {
		g.Go(func() error {
			dh.hashWorker(gctx, jobChan)
			return nil
		})
	}

	combiner := newTreeCombiner(dh.algorithm)
	g.Go(func() error {
		return dh.combine(gctx, orderedChan, combiner, result)
	})

	if err := g.Wait(); err != nil {
		return nil, asDigestError(err, rootDir)
	}

	result.Digest = hex.EncodeToString(combiner.Sum())
	result.Duration = time.Since(start)

	VerboseLog(1, "digest %s of %s: %d files, %d dirs, %d links, %d bytes in %v",
		result.Algorithm, result.Root, result.Files, result.Directories, result.Links, result.Bytes, result.Duration)

	return result, nil
}

// dispatch numbers entries, queues them for the combiner in traversal order
// and hands regular files to the hash workers. Directory and symlink
// signatures are cheap and computed inline.
func (dh *DirHasher) dispatch(ctx context.Context, entryChan <-chan *DirectoryEntry, jobChan chan<- *hashJob, orderedChan chan<- *hashJob) error {
	defer close(orderedChan)
	defer close(jobChan)

	var seq uint64
	for {
		var entry *DirectoryEntry
		var ok bool
		select {
		case entry, ok = <-entryChan:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		job := &hashJob{
			seq:   seq,
			entry: entry,
			done:  make(chan struct{}),
		}
		seq++

		select {
		case orderedChan <- job:
		case <-ctx.Done():
			return ctx.Err()
		}

		switch {
		case entry.Err != nil:
			job.err = newDigestError(KindUnreadableEntry, "traverse", entry.RelPath, entry.Err)
			close(job.done)
		case entry.Kind == Directory:
			job.sig = DirectorySignature(dh.algorithm, entry.RelPath)
			close(job.done)
		case entry.Kind == Symlink:
			job.sig = SymlinkSignature(dh.algorithm, entry.RelPath, entry.Target)
			close(job.done)
		default:
			select {
			case jobChan <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// hashWorker hashes file contents until the job channel is closed
func (dh *DirHasher) hashWorker(ctx context.Context, jobChan <-chan *hashJob) {
	for job := range jobChan {
		if IsDebugEnabled("hash") {
			VerboseLog(3, "hashing %q (job %d)", job.entry.RelPath, job.seq)
		}

		contentDigest, n, err := HashFileChunked(ctx, job.entry.AbsPath, dh.algorithm, dh.opts.ChunkSize)
		switch {
		case err == nil:
			job.sig = FileSignature(dh.algorithm, job.entry.RelPath, contentDigest)
			job.size = n
		case errors.Is(err, ErrInterrupted):
			job.err = newDigestError(KindInterrupted, "hash", job.entry.RelPath, err)
		default:
			job.err = newDigestError(KindUnreadableEntry, "hash", job.entry.RelPath, err)
		}

		if IsDebugEnabled("hash") {
			if job.err != nil {
				VerboseLog(3, "hash failed for %q (job %d): %v", job.entry.RelPath, job.seq, job.err)
			} else {
				VerboseLog(3, "hash completed for %q (job %d, %d bytes)", job.entry.RelPath, job.seq, n)
			}
		}

		close(job.done)
	}
}

// combine is the only writer of the tree hash. It consumes jobs in the order
// they were dispatched, never in completion order.
func (dh *DirHasher) combine(ctx context.Context, orderedChan <-chan *hashJob, combiner *treeCombiner, result *Result) error {
	for job := range orderedChan {
		select {
		case <-job.done:
		case <-ctx.Done():
			return ctx.Err()
		}

		if job.err != nil {
			return job.err
		}

		combiner.Add(job.sig)
		switch job.entry.Kind {
		case Directory:
			result.Directories++
		case Symlink:
			result.Links++
		default:
			result.Files++
			result.Bytes += job.size
		}
	}
	return nil
}

// asDigestError normalises pipeline errors; cancellation becomes KindInterrupted
func asDigestError(err error, rootDir string) error {
	var de *DigestError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newDigestError(KindInterrupted, "digest", rootDir, err)
	}
	return fmt.Errorf("digest %s: %w", rootDir, err)
}

// ComputeDirectoryDigest returns the hex digest of the tree at rootPath using
// the named algorithm, chunked reads of at most chunkSize bytes and the given
// symlink policy.
func ComputeDirectoryDigest(rootPath, algorithm string, chunkSize int, symlinkPolicy SymlinkPolicy) (string, error) {
	opts := DefaultOptions()
	opts.Algorithm = algorithm
	opts.ChunkSize = chunkSize
	opts.SymlinkPolicy = symlinkPolicy

	dh, err := NewDirHasher(opts)
	if err != nil {
		return "", err
	}

	result, err := dh.Digest(context.Background(), rootPath)
	if err != nil {
		return "", err
	}
	return result.Digest, nil
}
