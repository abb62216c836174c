package core

import (
	"strings"

	"github.com/dargueta/raidfs/dentry"
	"github.com/dargueta/raidfs/errors"
	"github.com/dargueta/raidfs/inode"
)

// RootInode is the fixed inode number of the filesystem root, reserved by
// the formatter.
const RootInode int64 = 0

// splitPath validates path is absolute and splits it into non-empty,
// MAX_NAME-bounded components. The bare root path "/" is rejected here with
// EINVAL before any splitting, since it has no parent and no final-component
// name for the directory-operation callers that need one.
func splitPath(path string) ([]string, errors.DriverError) {
	if len(path) == 0 || path[0] != '/' {
		return nil, errors.ErrInvalidArgument.WithMessage("path must be absolute")
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, errors.ErrInvalidArgument.WithMessage("root path has no parent or name")
	}

	parts := strings.Split(trimmed, "/")
	for _, p := range parts {
		if p == "" {
			return nil, errors.ErrInvalidArgument.WithMessage("path contains an empty component")
		}
		if len(p) > dentry.MaxName {
			return nil, errors.ErrInvalidArgument.WithMessage("path component exceeds MAX_NAME")
		}
	}
	return parts, nil
}

// lookupInDir scans dir's direct blocks only -- the resolver never descends
// into the indirect block, since directories never grow entries into it --
// for an entry named name, always reading the mirrored disk-0 copy of each
// directory block.
func (c *Context) lookupInDir(dir inode.Inode, name string) (int64, errors.DriverError) {
	for _, b := range dir.Blocks[:inode.DBlock] {
		if b == inode.Unallocated {
			continue
		}
		block := c.DS.ReadDirectoryBlock(b)
		entries, err := dentry.ReadAll(block)
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if !e.Empty() && e.Name == name {
				return e.Num, nil
			}
		}
	}
	return 0, errors.ErrNotFound
}

// Resolve walks path from the root, returning the inode number of the
// final component. "/" itself resolves to RootInode.
func (c *Context) Resolve(path string) (int64, errors.DriverError) {
	if path == "/" {
		return RootInode, nil
	}

	parts, err := splitPath(path)
	if err != nil {
		return 0, err
	}

	cur := RootInode
	for _, name := range parts {
		dir, err := c.readInode(cur)
		if err != nil {
			return 0, err
		}
		if !dir.IsDir() {
			return 0, errors.ErrNotADirectory
		}
		cur, err = c.lookupInDir(dir, name)
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}

// resolveParent resolves path's containing directory and returns it
// alongside the final path component's name, for callers (mknod, mkdir,
// unlink, rmdir) that need to mutate the parent directory rather than just
// read the target.
func (c *Context) resolveParent(path string) (parent int64, name string, err errors.DriverError) {
	parts, err := splitPath(path)
	if err != nil {
		return 0, "", err
	}

	if len(parts) == 1 {
		return RootInode, parts[0], nil
	}

	parentPath := "/" + strings.Join(parts[:len(parts)-1], "/")
	parent, err = c.Resolve(parentPath)
	if err != nil {
		return 0, "", err
	}
	return parent, parts[len(parts)-1], nil
}
