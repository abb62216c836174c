package core

import (
	"os"
	"time"

	"github.com/dargueta/raidfs/dentry"
	"github.com/dargueta/raidfs/errors"
	"github.com/dargueta/raidfs/inode"
)

// addDirEntry writes a new (name, childNum) entry into the first empty slot
// among parent's direct blocks, allocating a fresh directory block if every
// existing one is full. parent is mutated in place (its Size grows by one
// entry, and Blocks gains any newly allocated block) and the updated inode
// is committed to disk before returning, so callers that also change other
// fields on parent (nlinks, etc.) can keep using the same value and write it
// again afterward.
func (c *Context) addDirEntry(parent *inode.Inode, name string, childNum int64) errors.DriverError {
	for _, b := range parent.Blocks[:inode.DBlock] {
		if b == inode.Unallocated {
			continue
		}
		block := c.DS.ReadDirectoryBlock(b)
		entries, err := dentry.ReadAll(block)
		if err != nil {
			return err
		}
		for i, e := range entries {
			if e.Empty() {
				if err := dentry.WriteAt(block, i, dentry.Dentry{Name: name, Num: childNum}); err != nil {
					return err
				}
				c.DS.WriteDirectoryBlock(b, block)
				parent.Size += int64(dentry.WireSize)
				return c.writeInode(parent.Num, *parent)
			}
		}
	}

	for idx, b := range parent.Blocks[:inode.DBlock] {
		if b != inode.Unallocated {
			continue
		}
		newBlock, err := c.Data.Allocate()
		if err != nil {
			return err
		}
		block := make([]byte, c.BlockSize)
		if err := dentry.WriteAt(block, 0, dentry.Dentry{Name: name, Num: childNum}); err != nil {
			return err
		}
		c.DS.WriteDirectoryBlock(newBlock, block)
		parent.Blocks[idx] = newBlock
		parent.Size += int64(dentry.WireSize)
		return c.writeInode(parent.Num, *parent)
	}
	return errors.ErrFileTooLarge.WithMessage("directory has no free direct block slots left")
}

// removeDirEntry zeroes the (name, *) slot in parent's direct blocks,
// decrements parent.Size by one entry, and commits the updated inode to
// disk. It is an error (reported as ErrNotFound) if no such entry exists.
// parent is taken by pointer so callers that also change other fields
// (Rmdir's Nlinks--) can keep mutating the same value and persist both
// changes with one final write.
func (c *Context) removeDirEntry(parent *inode.Inode, name string) errors.DriverError {
	for _, b := range parent.Blocks[:inode.DBlock] {
		if b == inode.Unallocated {
			continue
		}
		block := c.DS.ReadDirectoryBlock(b)
		entries, err := dentry.ReadAll(block)
		if err != nil {
			return err
		}
		for i, e := range entries {
			if !e.Empty() && e.Name == name {
				if err := dentry.WriteAt(block, i, dentry.Dentry{}); err != nil {
					return err
				}
				c.DS.WriteDirectoryBlock(b, block)
				parent.Size -= int64(dentry.WireSize)
				return c.writeInode(parent.Num, *parent)
			}
		}
	}
	return errors.ErrNotFound
}

// freeBlocks releases every direct and indirect-addressed data block an
// inode owns, plus the indirect block page itself, used when a file or
// directory's link count drops to zero.
func (c *Context) freeBlocks(n inode.Inode) errors.DriverError {
	for _, b := range n.Blocks[:inode.DBlock] {
		if b != inode.Unallocated {
			c.Data.Free(b)
		}
	}
	ib := n.Blocks[inode.IndBlock]
	if ib == inode.Unallocated {
		return nil
	}
	raw := c.DS.ReadDataBlock(ib)
	indirect, err := inode.DecodeIndirectBlock(raw, int(c.BlockSize))
	if err != nil {
		return err
	}
	for _, b := range indirect.Blocks {
		if b != inode.Unallocated {
			c.Data.Free(b)
		}
	}
	c.Data.Free(ib)
	return nil
}

// Mknod creates a new regular file at path.
func (c *Context) Mknod(path string, mode os.FileMode, uid, gid uint32) (int64, errors.DriverError) {
	return c.createEntry(path, mode&^os.ModeDir, uid, gid)
}

// Mkdir creates a new, empty directory at path. "." and ".." are never
// stored as real entries -- every block pointer stays unallocated, exactly
// as a freshly allocated inode starts out -- callers synthesize them at
// readdir time instead.
func (c *Context) Mkdir(path string, mode os.FileMode, uid, gid uint32) (int64, errors.DriverError) {
	// Mode is masked down to the low 0777 permission bits and OR'd with the
	// directory-type bit -- any type/setuid/sticky bits the caller passed
	// are stripped.
	return c.createEntry(path, (mode&os.ModePerm)|os.ModeDir, uid, gid)
}

// createEntry is the shared body of Mknod and Mkdir: resolve the parent,
// reject an existing entry of the same name, allocate and commit a fresh
// inode, then link it into the parent directory. The parent's link count
// is bumped for either kind of child, not just directories -- creating any
// entry adds one more name pointing into the parent.
func (c *Context) createEntry(path string, mode os.FileMode, uid, gid uint32) (int64, errors.DriverError) {
	parentNum, name, err := c.resolveParent(path)
	if err != nil {
		return 0, err
	}
	parent, err := c.readInode(parentNum)
	if err != nil {
		return 0, err
	}
	if !parent.IsDir() {
		return 0, errors.ErrNotADirectory
	}
	if _, err := c.lookupInDir(parent, name); err == nil {
		return 0, errors.ErrExists
	}

	childNum, err := c.Inodes.Allocate()
	if err != nil {
		return 0, err
	}
	child := inode.New(childNum, mode, uid, gid, time.Now())
	if err := c.writeInode(childNum, child); err != nil {
		return 0, err
	}

	if err := c.addDirEntry(&parent, name, childNum); err != nil {
		return 0, err
	}

	parent.Nlinks++
	if err := c.writeInode(parentNum, parent); err != nil {
		return 0, err
	}
	return childNum, nil
}

// Unlink removes a non-directory entry from its parent, decrementing the
// parent's and the target's link counts once per call (not once per disk),
// and freeing the target's inode and blocks once its count reaches zero.
func (c *Context) Unlink(path string) errors.DriverError {
	parentNum, name, err := c.resolveParent(path)
	if err != nil {
		return err
	}
	parent, err := c.readInode(parentNum)
	if err != nil {
		return err
	}
	childNum, err := c.lookupInDir(parent, name)
	if err != nil {
		return err
	}
	child, err := c.readInode(childNum)
	if err != nil {
		return err
	}
	if child.IsDir() {
		return errors.ErrIsADirectory
	}

	if err := c.removeDirEntry(&parent, name); err != nil {
		return err
	}
	parent.Nlinks--
	if err := c.writeInode(parentNum, parent); err != nil {
		return err
	}

	child.Nlinks--
	if child.Nlinks <= 0 {
		if err := c.freeBlocks(child); err != nil {
			return err
		}
		return c.freeInode(childNum)
	}
	return c.writeInode(childNum, child)
}

// Rmdir removes an empty directory. "." and ".." are synthesized at
// readdir time rather than stored, so empty here means no stored entries
// at all.
func (c *Context) Rmdir(path string) errors.DriverError {
	parentNum, name, err := c.resolveParent(path)
	if err != nil {
		return err
	}
	parent, err := c.readInode(parentNum)
	if err != nil {
		return err
	}
	childNum, err := c.lookupInDir(parent, name)
	if err != nil {
		return err
	}
	child, err := c.readInode(childNum)
	if err != nil {
		return err
	}
	if !child.IsDir() {
		return errors.ErrNotADirectory
	}

	entries, err := c.ReadDir(child)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return errors.ErrDirectoryNotEmpty
	}

	if err := c.removeDirEntry(&parent, name); err != nil {
		return err
	}
	if err := c.freeBlocks(child); err != nil {
		return err
	}
	if err := c.freeInode(childNum); err != nil {
		return err
	}

	parent.Nlinks--
	return c.writeInode(parentNum, parent)
}

// ReadDir returns every non-empty directory entry stored in dir's direct
// blocks. "." and ".." are never stored here; Dispatcher.Readdir
// synthesizes them for callers that need a POSIX-complete listing.
func (c *Context) ReadDir(dir inode.Inode) ([]dentry.Dentry, errors.DriverError) {
	if !dir.IsDir() {
		return nil, errors.ErrNotADirectory
	}
	var out []dentry.Dentry
	for _, b := range dir.Blocks[:inode.DBlock] {
		if b == inode.Unallocated {
			continue
		}
		block := c.DS.ReadDirectoryBlock(b)
		entries, err := dentry.ReadAll(block)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.Empty() {
				out = append(out, e)
			}
		}
	}
	return out, nil
}
