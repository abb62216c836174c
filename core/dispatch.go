// Dispatcher wraps the core filesystem operations as a POSIX-style external
// interface: every call returns a plain negative errno (0 on success)
// alongside its result, the same convention FUSE bindings expect, rather
// than a DriverError a caller would have to further translate.
package core

import (
	"os"

	"github.com/dargueta/raidfs/dentry"
	"github.com/dargueta/raidfs/inode"
)

// Dispatcher is the operation surface a frontend (FUSE adapter, test
// harness, CLI) drives a mounted filesystem through.
type Dispatcher struct {
	*Context
}

// NewDispatcher wraps an already-mounted Context.
func NewDispatcher(ctx *Context) *Dispatcher {
	return &Dispatcher{Context: ctx}
}

func errnoOf(err error) int {
	if err == nil {
		return 0
	}
	type errnoer interface{ Errno() int }
	if e, ok := err.(errnoer); ok {
		return e.Errno()
	}
	return -5 // EIO
}

// Getattr resolves path and returns its inode metadata.
func (d *Dispatcher) Getattr(path string) (inode.Inode, int) {
	num, err := d.Resolve(path)
	if err != nil {
		return inode.Inode{}, errnoOf(err)
	}
	n, err := d.readInode(num)
	return n, errnoOf(err)
}

// Mknod creates a regular file.
func (d *Dispatcher) Mknod(path string, mode os.FileMode, uid, gid uint32) (int64, int) {
	num, err := d.Context.Mknod(path, mode, uid, gid)
	return num, errnoOf(err)
}

// Mkdir creates a directory.
func (d *Dispatcher) Mkdir(path string, mode os.FileMode, uid, gid uint32) (int64, int) {
	num, err := d.Context.Mkdir(path, mode, uid, gid)
	return num, errnoOf(err)
}

// Unlink removes a non-directory directory entry.
func (d *Dispatcher) Unlink(path string) int {
	return errnoOf(d.Context.Unlink(path))
}

// Rmdir removes an empty directory.
func (d *Dispatcher) Rmdir(path string) int {
	return errnoOf(d.Context.Rmdir(path))
}

// Read reads up to length bytes of path starting at offset.
func (d *Dispatcher) Read(path string, offset, length int64) ([]byte, int) {
	data, err := d.Context.Read(path, offset, length)
	return data, errnoOf(err)
}

// Write stores data at offset in path.
func (d *Dispatcher) Write(path string, offset int64, data []byte) (int64, int) {
	n, err := d.Context.Write(path, offset, data)
	return n, errnoOf(err)
}

// Readdir lists a directory's entries, unconditionally synthesizing "."
// and ".." ahead of whatever is actually stored -- neither is ever written
// to disk.
func (d *Dispatcher) Readdir(path string) ([]dentry.Dentry, int) {
	num, err := d.Resolve(path)
	if err != nil {
		return nil, errnoOf(err)
	}
	n, err := d.readInode(num)
	if err != nil {
		return nil, errnoOf(err)
	}

	parentNum := num
	if path != "/" {
		p, _, perr := d.resolveParent(path)
		if perr == nil {
			parentNum = p
		}
	}

	entries, err := d.ReadDir(n)
	if err != nil {
		return nil, errnoOf(err)
	}

	out := make([]dentry.Dentry, 0, len(entries)+2)
	out = append(out, dentry.Dentry{Name: ".", Num: num})
	out = append(out, dentry.Dentry{Name: "..", Num: parentNum})
	out = append(out, entries...)
	return out, 0
}
