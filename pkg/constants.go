package dirhash

import (
	"strings"
)

// Version of the dirhash library and command
const Version = "0.1.0"

// Defaults applied when neither config file nor command line sets a value
const (
	DefaultAlgorithm   = "md5"   // Same default as the original dirhash tool
	DefaultChunkSize   = 1000000 // Maximum bytes of a file read into memory at once
	DefaultHashWorkers = 4       // Concurrent file hashing workers
	MaxHashWorkers     = 64
)

// Hash type constants
const (
	HashTypeMD5      uint16 = 1 // MD5 (16 bytes)
	HashTypeSHA1     uint16 = 2 // SHA-1 (20 bytes)
	HashTypeSHA256   uint16 = 3 // SHA-256 (32 bytes)
	HashTypeSHA512   uint16 = 4 // SHA-512 (64 bytes)
	HashTypeSHA3_256 uint16 = 5 // SHA3-256 (32 bytes)
	HashTypeSHA3_512 uint16 = 6 // SHA3-512 (64 bytes)
	HashTypeBLAKE3   uint16 = 7 // BLAKE3 (32 bytes)
	HashTypeXXHash64 uint16 = 8 // xxHash64 (8 bytes, non-cryptographic)
	HashTypeCRC64    uint16 = 9 // CRC-64/ISO (8 bytes, non-cryptographic)
)

// Hash size constants
const (
	HashSizeMD5      = 16
	HashSizeSHA1     = 20
	HashSizeSHA256   = 32
	HashSizeSHA512   = 64
	HashSizeSHA3_256 = 32
	HashSizeSHA3_512 = 64
	HashSizeBLAKE3   = 32
	HashSizeXXHash64 = 8
	HashSizeCRC64    = 8
)

// hashTypeNames maps type IDs to canonical algorithm names, in listing order
var hashTypeNames = []struct {
	typeID uint16
	name   string
}{
	{HashTypeMD5, "md5"},
	{HashTypeSHA1, "sha1"},
	{HashTypeSHA256, "sha256"},
	{HashTypeSHA512, "sha512"},
	{HashTypeSHA3_256, "sha3-256"},
	{HashTypeSHA3_512, "sha3-512"},
	{HashTypeBLAKE3, "blake3"},
	{HashTypeXXHash64, "xxhash64"},
	{HashTypeCRC64, "crc64"},
}

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	for _, ht := range hashTypeNames {
		if ht.typeID == hashType {
			return ht.name
		}
	}
	return "unknown"
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, ht := range hashTypeNames {
		if ht.name == name {
			return ht.typeID, true
		}
	}
	return 0, false
}

// Signature kind tags. Each per-entry signature starts with one of these
// followed by a NUL separator (digest format version 1).
const (
	sigTagFile    = 'f'
	sigTagDir     = 'd'
	sigTagSymlink = 'l'
	sigSeparator  = 0x00
)

// Context tags stored alongside queued paths in the traversal skiplist
const (
	PendingContext = "pending"
)

// Symlink policy config spellings
const (
	SymlinkModeHash   = "hash"
	SymlinkModeIgnore = "ignore"
)

// Output formats
const (
	OutputFormatHuman = "human"
	OutputFormatJSON  = "json"
)
