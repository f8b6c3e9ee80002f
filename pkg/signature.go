package dirhash

import (
	"hash"
)

// Per-entry signatures, digest format version 1. H is the selected algorithm
// and every field is NUL terminated (relative paths and link targets cannot
// contain NUL):
//
//	file:      H("f" 0x00 relPath 0x00 contentDigest)
//	directory: H("d" 0x00 relPath 0x00)
//	symlink:   H("l" 0x00 relPath 0x00 target)
//
// The tree digest is H over all entry signatures concatenated in traversal order.

func writeSignatureHeader(h hash.Hash, tag byte, relPath string) {
	h.Write([]byte{tag, sigSeparator})
	h.Write([]byte(relPath))
	h.Write([]byte{sigSeparator})
}

// FileSignature signs a regular file from its path and content digest
func FileSignature(algorithm *HashAlgorithm, relPath string, contentDigest []byte) []byte {
	h := algorithm.NewFunc()
	writeSignatureHeader(h, sigTagFile, relPath)
	h.Write(contentDigest)
	return h.Sum(nil)
}

// DirectorySignature is the sentinel signature of a directory; it depends on
// the path only, children contribute through their own signatures.
func DirectorySignature(algorithm *HashAlgorithm, relPath string) []byte {
	h := algorithm.NewFunc()
	writeSignatureHeader(h, sigTagDir, relPath)
	return h.Sum(nil)
}

// SymlinkSignature signs a symbolic link by its target string, never the target content
func SymlinkSignature(algorithm *HashAlgorithm, relPath, target string) []byte {
	h := algorithm.NewFunc()
	writeSignatureHeader(h, sigTagSymlink, relPath)
	h.Write([]byte(target))
	return h.Sum(nil)
}

// treeCombiner folds entry signatures into the final digest. It must only be
// fed from one goroutine, in traversal order.
type treeCombiner struct {
	h       hash.Hash
	entries int
}

func newTreeCombiner(algorithm *HashAlgorithm) *treeCombiner {
	return &treeCombiner{h: algorithm.NewFunc()}
}

func (c *treeCombiner) Add(signature []byte) {
	c.h.Write(signature)
	c.entries++
}

func (c *treeCombiner) Sum() []byte {
	return c.h.Sum(nil)
}
