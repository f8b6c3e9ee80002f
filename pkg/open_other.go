//go:build !unix

package dirhash

import "os"

func openNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
