package dirhash

import (
	"context"
	"fmt"
)

// This file holds small helpers used by the command line front end

// InitDebugFlags initialises debug flags - for CLI compatibility
func InitDebugFlags(flagsStr string) {
	if flagsStr != "" {
		SetDebugFlags(flagsStr)
	}
}

// LogDebugFlags logs the enabled debug flags at verbose level 1
func LogDebugFlags() {
	if GetVerboseLevel() > 0 && len(debugFlags) > 0 {
		var enabled []string
		for flag, on := range debugFlags {
			if on {
				enabled = append(enabled, flag)
			}
		}
		VerboseLog(1, "Debug flags enabled: %v", enabled)
	}
}

// DigestDirectory validates opts and digests a single root
func DigestDirectory(ctx context.Context, rootDir string, opts Options) (*Result, error) {
	dh, err := NewDirHasher(opts)
	if err != nil {
		return nil, err
	}
	return dh.Digest(ctx, rootDir)
}

// VerifyDirectory digests rootDir and compares it with the cached record for
// the same root and configuration. A missing record is reported as a mismatch
// with a nil record. The cache is only read once the digest has succeeded.
func VerifyDirectory(ctx context.Context, cachePath, rootDir string, opts Options) (*Result, *CacheRecord, bool, error) {
	result, err := DigestDirectory(ctx, rootDir, opts)
	if err != nil {
		return nil, nil, false, err
	}

	record, err := LookupCacheRecord(cachePath, rootDir, opts)
	if err != nil {
		return result, nil, false, fmt.Errorf("failed to read cache %s: %w", cachePath, err)
	}

	return result, record, record != nil && record.Digest == result.Digest, nil
}
