package dirhash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(root, algorithm, digest string) *CacheRecord {
	return &CacheRecord{
		Root:      root,
		Algorithm: algorithm,
		Symlinks:  SymlinkModeHash,
		ChunkSize: DefaultChunkSize,
		Digest:    digest,
		Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestCacheRecordKey(t *testing.T) {
	a := sampleRecord("/data", "md5", "aa")
	b := sampleRecord("/data", "MD5", "bb")
	assert.Equal(t, a.Key(), b.Key(), "key must not depend on digest or algorithm case")
	assert.Len(t, a.Key(), 16)

	c := sampleRecord("/data", "sha256", "aa")
	assert.NotEqual(t, a.Key(), c.Key())

	d := sampleRecord("/data", "md5", "aa")
	d.Symlinks = SymlinkModeIgnore
	assert.NotEqual(t, a.Key(), d.Key())

	e := sampleRecord("/data", "md5", "aa")
	e.Exclude = []string{`\.git$`}
	assert.NotEqual(t, a.Key(), e.Key())

	f := sampleRecord("/data", "md5", "aa")
	f.ChunkSize = 7
	assert.Equal(t, a.Key(), f.Key(), "chunk size never changes the digest")
}

func TestWriteAndLoadCacheRecords(t *testing.T) {
	for _, name := range []string{"digests.ini", "digests.ini.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			first := sampleRecord("/data/one", "md5", "0123456789abcdef0123456789abcdef")
			first.Exclude = []string{`\.git$`, "a,b"}
			second := sampleRecord("/data/two", "sha1", "fedcba9876543210fedcba9876543210fedcba98")

			require.NoError(t, WriteCacheRecord(path, first))
			require.NoError(t, WriteCacheRecord(path, second))

			records, err := LoadCacheRecords(path)
			require.NoError(t, err)
			require.Len(t, records, 2)

			assert.Equal(t, first.Root, records[0].Root)
			assert.Equal(t, first.Digest, records[0].Digest)
			assert.Equal(t, first.Exclude, records[0].Exclude)
			assert.Equal(t, first.Timestamp, records[0].Timestamp)
			assert.Equal(t, DefaultChunkSize, records[0].ChunkSize)
			assert.Equal(t, second.Algorithm, records[1].Algorithm)
			assert.Equal(t, second.Digest, records[1].Digest)

			// Replacing a record keeps one section per key
			updated := sampleRecord("/data/one", "md5", "ffffffffffffffffffffffffffffffff")
			updated.Exclude = first.Exclude
			require.NoError(t, WriteCacheRecord(path, updated))

			records, err = LoadCacheRecords(path)
			require.NoError(t, err)
			require.Len(t, records, 2)

			var found *CacheRecord
			for _, r := range records {
				if r.Root == "/data/one" {
					found = r
				}
			}
			require.NotNil(t, found)
			assert.Equal(t, updated.Digest, found.Digest)

			// No temporary files are left next to the cache
			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestCacheFileCompression(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "digests.ini")
	compressed := filepath.Join(dir, "digests.ini.zst")

	record := sampleRecord("/data", "md5", "0123456789abcdef0123456789abcdef")
	require.NoError(t, WriteCacheRecord(plain, record))
	require.NoError(t, WriteCacheRecord(compressed, record))

	plainData, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(plainData), "# dirhash cache"))
	assert.Contains(t, string(plainData), record.Digest)

	compressedData, err := os.ReadFile(compressed)
	require.NoError(t, err)
	assert.NotContains(t, string(compressedData), record.Digest)
	// zstd frame magic
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, compressedData[:4])
}

func TestLookupCacheRecord(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), []byte("content"), 0644))
	cachePath := filepath.Join(t.TempDir(), "cache.ini")

	opts := DefaultOptions()
	result, err := DigestDirectory(t.Context(), root, opts)
	require.NoError(t, err)

	record, err := LookupCacheRecord(cachePath, root, opts)
	require.NoError(t, err)
	assert.Nil(t, record, "missing cache file has no records")

	require.NoError(t, WriteCacheRecord(cachePath, NewCacheRecord(result, opts.Exclude)))

	record, err = LookupCacheRecord(cachePath, root, opts)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, result.Digest, record.Digest)

	// Chunk size and workers are not part of the key
	other := opts
	other.ChunkSize = 3
	other.Workers = 1
	record, err = LookupCacheRecord(cachePath, root, other)
	require.NoError(t, err)
	assert.NotNil(t, record)

	other.SymlinkPolicy = SymlinkIgnore
	record, err = LookupCacheRecord(cachePath, root, other)
	require.NoError(t, err)
	assert.Nil(t, record)

	_, matched, ok, err := VerifyDirectory(t.Context(), cachePath, root, opts)
	require.NoError(t, err)
	assert.NotNil(t, matched)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), []byte("changed"), 0644))
	_, _, ok, err = VerifyDirectory(t.Context(), cachePath, root, opts)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCacheRecordsRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	missingDigest := filepath.Join(dir, "missing.ini")
	require.NoError(t, os.WriteFile(missingDigest, []byte("[abc]\nroot = /data\n"), 0644))
	_, err := LoadCacheRecords(missingDigest)
	assert.Error(t, err)

	badTimestamp := filepath.Join(dir, "timestamp.ini")
	require.NoError(t, os.WriteFile(badTimestamp, []byte("[abc]\nroot = /data\ndigest = 00\ntimestamp = yesterday\n"), 0644))
	_, err = LoadCacheRecords(badTimestamp)
	assert.Error(t, err)

	notZstd := filepath.Join(dir, "plain.ini.zst")
	require.NoError(t, os.WriteFile(notZstd, []byte("[abc]\nroot = /data\ndigest = 00\n"), 0644))
	_, err = LoadCacheRecords(notZstd)
	assert.Error(t, err)
}
