//go:build unix

package memflash

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Open returns a chip whose contents are the memory-mapped file at path.
// The file is created and erased if it does not exist, and resized to size
// bytes otherwise. Bytes past the end of a grown file read as erased.
func Open(path string, size, sectorSize uint32, opts ...Option) (*Chip, error) {
	c := newChip(sectorSize, size, opts)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("memflash: open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("memflash: stat image: %w", err)
	}
	oldSize := fi.Size()
	if fi.Size() != int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf("memflash: resize image: %w", err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("memflash: mmap image: %w", err)
	}
	c.mem = data
	c.unmap = func() error {
		if err := unix.Msync(data, unix.MS_SYNC); err != nil {
			_ = unix.Munmap(data)
			return fmt.Errorf("memflash: sync image: %w", err)
		}
		return unix.Munmap(data)
	}
	if oldSize < int64(size) {
		c.fill(uint32(oldSize), size-uint32(oldSize))
	}
	return c, nil
}
