// Package dirhash computes a deterministic digest of a directory tree.
//
// The digest covers the relative path and kind of every entry, the content of
// regular files and the target string of symbolic links. It does not depend on
// the order the operating system lists directories in, on timestamps,
// permissions or ownership, on the chunk size used to read files, or on the
// number of hashing workers.
//
// # Core API
//
// The simplest entry point matches the classic command line behaviour:
//
//	digest, err := dirhash.ComputeDirectoryDigest("/path/to/dir", "md5", 1000000, dirhash.SymlinkHash)
//
// DirHasher validates a configuration once and can then be used for several
// roots, with cancellation through a context:
//
//	opts := dirhash.DefaultOptions()
//	opts.Algorithm = "sha256"
//	opts.Exclude = []string{`(^|/)\.git$`}
//	dh, err := dirhash.NewDirHasher(opts)
//	if err != nil {
//		return err
//	}
//	result, err := dh.Digest(ctx, "/path/to/dir")
//
// # Errors
//
// Failures are reported as *DigestError and match one of the sentinels with
// errors.Is: ErrInvalidRoot, ErrUnsupportedAlgorithm, ErrUnreadableEntry,
// ErrInvalidChunkSize, ErrInvalidOptions or ErrInterrupted. No digest is ever
// returned for a tree that could not be read completely.
//
// # Configuration
//
// Enable debug output:
//
//	dirhash.SetDebugFlags("scan,hash")
//	dirhash.SetVerboseLevel(2)
//
// Digests can be stored in and compared against INI cache files with
// WriteCacheRecord, LookupCacheRecord and VerifyDirectory.
package dirhash
