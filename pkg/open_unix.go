//go:build unix

package dirhash

import (
	"os"

	"golang.org/x/sys/unix"
)

// openNoFollow opens path for reading without following a final symlink and
// without blocking on fifos. Both flags are no-ops for regular files.
func openNoFollow(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW|unix.O_NONBLOCK, 0)
}
