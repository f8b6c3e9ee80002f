package dirhash

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreManager holds exclusion patterns. Matching entries are left out of the
// digest as if they did not exist; matching directories are not descended.
type IgnoreManager struct {
	sources  []string
	patterns []*regexp.Regexp
}

// NewIgnoreManager compiles the given regular expressions
func NewIgnoreManager(patterns []string) (*IgnoreManager, error) {
	im := &IgnoreManager{
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, p := range patterns {
		if err := im.AddPattern(p); err != nil {
			return nil, err
		}
	}
	return im, nil
}

// AddPattern compiles and adds one pattern; blank patterns are ignored
func (im *IgnoreManager) AddPattern(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
	}
	im.sources = append(im.sources, pattern)
	im.patterns = append(im.patterns, re)
	return nil
}

// LoadIgnoreFile adds patterns from a file, one regular expression per line.
// Empty lines and lines starting with # are skipped.
func (im *IgnoreManager) LoadIgnoreFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := im.AddPattern(line); err != nil {
			return fmt.Errorf("ignore file %s line %d: %w", path, lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ignore file: %w", err)
	}

	return nil
}

// ShouldIgnore checks if a relative path matches any pattern
func (im *IgnoreManager) ShouldIgnore(relativePath string) bool {
	if im == nil || relativePath == "" {
		return false
	}

	normalisedPath := filepath.ToSlash(relativePath)

	for _, pattern := range im.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}

	return false
}

// Patterns returns the pattern sources in the order they were added
func (im *IgnoreManager) Patterns() []string {
	if im == nil {
		return nil
	}
	out := make([]string, len(im.sources))
	copy(out, im.sources)
	return out
}

// Len returns the number of active patterns
func (im *IgnoreManager) Len() int {
	if im == nil {
		return 0
	}
	return len(im.patterns)
}
