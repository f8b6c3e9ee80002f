package dirhash

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-ini/ini"
	"github.com/google/vectorio"
	"github.com/klauspost/compress/zstd"
)

const (
	cacheFileHeader   = "# dirhash cache records, one section per directory and configuration\n"
	cacheCompressExt  = ".zst"
	cacheTimeLayout   = time.RFC3339
	cacheSectionBytes = 8 // Section names are the first 8 bytes of the key hash, hex encoded
)

// CacheRecord is a stored digest for one directory under one configuration.
// Chunk size is informational; it never changes the digest.
type CacheRecord struct {
	Root      string
	Algorithm string
	Symlinks  string
	Exclude   []string
	ChunkSize int
	Digest    string
	Timestamp time.Time
}

// NewCacheRecord builds a record from a digest result
func NewCacheRecord(result *Result, exclude []string) *CacheRecord {
	root := result.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &CacheRecord{
		Root:      root,
		Algorithm: result.Algorithm,
		Symlinks:  result.Symlinks,
		Exclude:   append([]string(nil), exclude...),
		ChunkSize: result.ChunkSize,
		Digest:    result.Digest,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
}

// Key identifies the directory and the parts of the configuration that
// influence the digest
func (r *CacheRecord) Key() string {
	sha, _ := GetHashAlgorithmByType(HashTypeSHA256)
	fields := append([]string{r.Root, strings.ToLower(r.Algorithm), r.Symlinks}, r.Exclude...)
	sum := HashStringToHexString(strings.Join(fields, "\x00"), sha)
	return sum[:cacheSectionBytes*2]
}

// Matches reports whether the record was produced for root under opts
func (r *CacheRecord) Matches(root string, opts Options) bool {
	other := &CacheRecord{
		Root:      root,
		Algorithm: opts.Algorithm,
		Symlinks:  opts.SymlinkPolicy.String(),
		Exclude:   opts.Exclude,
	}
	if abs, err := filepath.Abs(root); err == nil {
		other.Root = abs
	}
	return r.Key() == other.Key()
}

func (r *CacheRecord) writeSection(f *ini.File) error {
	name := r.Key()
	f.DeleteSection(name)
	section, err := f.NewSection(name)
	if err != nil {
		return fmt.Errorf("failed to create cache section: %w", err)
	}

	keys := []struct {
		key   string
		value string
	}{
		{"root", r.Root},
		{"algorithm", r.Algorithm},
		{"symlinks", r.Symlinks},
		{"chunk_size", strconv.Itoa(r.ChunkSize)},
		{"digest", r.Digest},
		{"timestamp", r.Timestamp.Format(cacheTimeLayout)},
	}
	for i, pattern := range r.Exclude {
		keys = append(keys, struct {
			key   string
			value string
		}{fmt.Sprintf("exclude_%d", i+1), pattern})
	}

	for _, k := range keys {
		if _, err := section.NewKey(k.key, k.value); err != nil {
			return fmt.Errorf("failed to set cache key %s: %w", k.key, err)
		}
	}
	return nil
}

func cacheRecordFromSection(section *ini.Section) (*CacheRecord, error) {
	record := &CacheRecord{
		Root:      section.Key("root").String(),
		Algorithm: section.Key("algorithm").String(),
		Symlinks:  section.Key("symlinks").String(),
		Digest:    section.Key("digest").String(),
	}
	if record.Root == "" || record.Digest == "" {
		return nil, fmt.Errorf("cache section %s: missing root or digest", section.Name())
	}

	if section.HasKey("chunk_size") {
		chunkSize, err := section.Key("chunk_size").Int()
		if err != nil {
			return nil, fmt.Errorf("cache section %s: invalid chunk_size: %w", section.Name(), err)
		}
		record.ChunkSize = chunkSize
	}

	if ts := section.Key("timestamp").String(); ts != "" {
		parsed, err := time.Parse(cacheTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("cache section %s: invalid timestamp: %w", section.Name(), err)
		}
		record.Timestamp = parsed
	}

	var excludeKeys []string
	for _, key := range section.KeyStrings() {
		if strings.HasPrefix(key, "exclude_") {
			excludeKeys = append(excludeKeys, key)
		}
	}
	sort.Slice(excludeKeys, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimPrefix(excludeKeys[i], "exclude_"))
		b, _ := strconv.Atoi(strings.TrimPrefix(excludeKeys[j], "exclude_"))
		return a < b
	})
	for _, key := range excludeKeys {
		record.Exclude = append(record.Exclude, section.Key(key).String())
	}

	return record, nil
}

// readCacheFile loads a cache file, returning an empty file if it does not exist
func readCacheFile(path string) (*ini.File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ini.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	if strings.HasSuffix(path, cacheCompressExt) {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer decoder.Close()
		data, err = decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress cache file: %w", err)
		}
	}

	// The header is rewritten on every save; keep it out of the first section's comment
	data = bytes.TrimPrefix(data, []byte(cacheFileHeader))

	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return f, nil
}

// LoadCacheRecords returns every record stored in a cache file
func LoadCacheRecords(path string) ([]*CacheRecord, error) {
	f, err := readCacheFile(path)
	if err != nil {
		return nil, err
	}

	var records []*CacheRecord
	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		record, err := cacheRecordFromSection(section)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// LookupCacheRecord finds the record for root under opts; nil if there is none
func LookupCacheRecord(path, root string, opts Options) (*CacheRecord, error) {
	records, err := LoadCacheRecords(path)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Matches(root, opts) {
			return record, nil
		}
	}
	return nil, nil
}

// WriteCacheRecord adds or replaces a record in the cache file at path. The
// file is rewritten through a temporary file and renamed into place.
func WriteCacheRecord(path string, record *CacheRecord) error {
	defer VerboseEnter()()

	f, err := readCacheFile(path)
	if err != nil {
		return err
	}

	if err := record.writeSection(f); err != nil {
		return err
	}

	var body bytes.Buffer
	if _, err := f.WriteTo(&body); err != nil {
		return fmt.Errorf("failed to serialise cache file: %w", err)
	}

	chunks := [][]byte{[]byte(cacheFileHeader), body.Bytes()}
	if strings.HasSuffix(path, cacheCompressExt) {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		compressed := encoder.EncodeAll(bytes.Join(chunks, nil), nil)
		encoder.Close()
		chunks = [][]byte{compressed}
	}

	tempPath := generateTempFileName(path)
	if err := writeFileVectored(tempPath, chunks); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	if IsDebugEnabled("cache") {
		VerboseLog(2, "cache record %s written to %s", record.Key(), path)
	}
	return nil
}

// writeFileVectored writes all chunks with a single writev and syncs the file
func writeFileVectored(path string, chunks [][]byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create cache file %s: %w", path, err)
	}
	defer file.Close()

	var iovecs []syscall.Iovec
	expected := 0
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		iov := syscall.Iovec{Base: &chunk[0]}
		iov.SetLen(len(chunk))
		iovecs = append(iovecs, iov)
		expected += len(chunk)
	}

	if len(iovecs) > 0 {
		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs)
		if err != nil {
			return fmt.Errorf("failed to write cache file with vectorio: %w", err)
		}
		if nw != expected {
			return fmt.Errorf("cache file write incomplete: wrote %d bytes, expected %d", nw, expected)
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	return nil
}
