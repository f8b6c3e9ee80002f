package dirhash

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc64"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	TypeID  uint16
	Size    int
	NewFunc func() hash.Hash
}

var crc64Table = crc64.MakeTable(crc64.ISO)

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	typeID, ok := HashTypeFromName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedAlgorithm, name,
			strings.Join(SupportedHashAlgorithms(), ", "))
	}
	return GetHashAlgorithmByType(typeID)
}

// GetHashAlgorithmByType returns the hash algorithm configuration for the given type ID
func GetHashAlgorithmByType(typeID uint16) (*HashAlgorithm, error) {
	algorithm := &HashAlgorithm{
		Name:   HashTypeName(typeID),
		TypeID: typeID,
	}

	switch typeID {
	case HashTypeMD5:
		algorithm.Size = HashSizeMD5
		algorithm.NewFunc = md5.New
	case HashTypeSHA1:
		algorithm.Size = HashSizeSHA1
		algorithm.NewFunc = sha1.New
	case HashTypeSHA256:
		algorithm.Size = HashSizeSHA256
		algorithm.NewFunc = sha256.New
	case HashTypeSHA512:
		algorithm.Size = HashSizeSHA512
		algorithm.NewFunc = sha512.New
	case HashTypeSHA3_256:
		algorithm.Size = HashSizeSHA3_256
		algorithm.NewFunc = sha3.New256
	case HashTypeSHA3_512:
		algorithm.Size = HashSizeSHA3_512
		algorithm.NewFunc = sha3.New512
	case HashTypeBLAKE3:
		algorithm.Size = HashSizeBLAKE3
		algorithm.NewFunc = func() hash.Hash { return blake3.New() }
	case HashTypeXXHash64:
		algorithm.Size = HashSizeXXHash64
		algorithm.NewFunc = func() hash.Hash { return xxhash.New() }
	case HashTypeCRC64:
		algorithm.Size = HashSizeCRC64
		algorithm.NewFunc = func() hash.Hash { return crc64.New(crc64Table) }
	default:
		return nil, fmt.Errorf("%w: type ID %d", ErrUnsupportedAlgorithm, typeID)
	}

	return algorithm, nil
}

// SupportedHashAlgorithms returns the names accepted by GetHashAlgorithm
func SupportedHashAlgorithms() []string {
	names := make([]string, 0, len(hashTypeNames))
	for _, ht := range hashTypeNames {
		names = append(names, ht.name)
	}
	return names
}

// HashReader feeds r into a fresh hash of the given algorithm, reading at most
// chunkSize bytes per Read call into a single reused buffer. The context is
// checked before each read so long files can be interrupted.
func HashReader(ctx context.Context, r io.Reader, algorithm *HashAlgorithm, chunkSize int) ([]byte, int64, error) {
	if chunkSize <= 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}

	hasher := algorithm.NewFunc()
	buffer := make([]byte, chunkSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return nil, total, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		default:
		}

		n, err := r.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			total += int64(n)
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, total, err
		}
	}

	return hasher.Sum(nil), total, nil
}

// HashFileChunked calculates the content hash of a file using bounded chunked
// reads. Only regular files are hashed: a path that is now a symlink, fifo or
// device fails instead of being followed or blocking.
func HashFileChunked(ctx context.Context, filePath string, algorithm *HashAlgorithm, chunkSize int) ([]byte, int64, error) {
	file, err := openNoFollow(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, filePath, info.Mode().Type())
	}

	adviseSequential(file)

	sum, n, err := HashReader(ctx, file, algorithm, chunkSize)
	if err != nil {
		return nil, n, fmt.Errorf("failed to hash file %s: %w", filePath, err)
	}
	return sum, n, nil
}

// HashStringToHexString calculates the hash of a string and returns it as a hex string
func HashStringToHexString(data string, algorithm *HashAlgorithm) string {
	hasher := algorithm.NewFunc()
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}
