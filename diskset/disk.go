// Package diskset manages the set of backing disks a raidfs mount operates
// over: one memory-mapped region per disk, plus the mirrored/striped region
// read-write helpers the core filesystem logic builds on.
//
// Mount-time memory-mapping is normally an external collaborator's concern,
// but this package still owns the mmap syscalls because the formatter needs
// to map and flush disks directly too, and grounds that need on
// hanwen-go-fuse's use of golang.org/x/sys for low-level unix calls.
package diskset

import (
	"os"

	"github.com/dargueta/raidfs/errors"
	"golang.org/x/sys/unix"
)

// Disk is one backing file, memory-mapped into the process as a shared
// writable mapping for the entire lifetime of the mount.
type Disk struct {
	Path string
	Data []byte

	file *os.File
}

// MapFile opens path and maps its first size bytes read-write, shared, so
// writes are visible to any other mapping of the same file and persist to
// disk on Msync/Munmap. The file must already be at least size bytes; use
// the formatter to create a file of the right size first.
func MapFile(path string, size int64) (*Disk, errors.DriverError) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.NewIOError(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.NewIOError(err)
	}
	if info.Size() < size {
		f.Close()
		return nil, errors.ErrInvalidArgument.WithMessage(
			"backing file is smaller than the requested image size")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.NewIOError(err)
	}

	return &Disk{Path: path, Data: data, file: f}, nil
}

// WrapBytes wraps an already-mapped (or, in tests, plain in-memory) byte
// slice as a Disk without performing any mmap syscall itself. This is the
// seam tests and the in-process formatter use to avoid real file I/O,
// mirroring how file_systems/common/blockcache lets callers supply
// fetch/flush callbacks instead of hard-wiring a real file.
func WrapBytes(path string, data []byte) *Disk {
	return &Disk{Path: path, Data: data}
}

// Msync flushes this disk's dirty pages to the backing file.
func (d *Disk) Msync() errors.DriverError {
	if d.file == nil {
		return nil // not a real mapping (e.g. a test fixture)
	}
	if err := unix.Msync(d.Data, unix.MS_SYNC); err != nil {
		return errors.NewIOError(err)
	}
	return nil
}

// Close flushes and unmaps the disk, closing the backing file.
func (d *Disk) Close() errors.DriverError {
	if d.file == nil {
		return nil
	}
	if err := d.Msync(); err != nil {
		return err
	}
	if err := unix.Munmap(d.Data); err != nil {
		return errors.NewIOError(err)
	}
	if err := d.file.Close(); err != nil {
		return errors.NewIOError(err)
	}
	return nil
}
