//go:build !unix

package memflash

import "errors"

// Open is not supported on this platform.
func Open(path string, size, sectorSize uint32, opts ...Option) (*Chip, error) {
	return nil, errors.New("memflash: memory-mapped images are not supported on this platform")
}
