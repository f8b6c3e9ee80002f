//go:build !linux

package dirhash

import "os"

func adviseSequential(file *os.File) {}
