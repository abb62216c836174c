package core

import (
	"time"

	"github.com/dargueta/raidfs/errors"
	"github.com/dargueta/raidfs/inode"
)

// indirectCapacity returns how many block pointers fit in one indirect
// block for the given block size.
func indirectCapacity(blockSize int64) int64 {
	return blockSize / 8
}

// maxFileSize returns the largest file size, in bytes, this layout's direct
// plus single-level indirect addressing can reach (one past the last
// addressable byte offset): one indirect pointer, one level of indirection.
func maxFileSize(blockSize int64) int64 {
	return int64(inode.DBlock)*blockSize + indirectCapacity(blockSize)*blockSize
}

// blockForRead returns the logical data block backing blockIdx in n, or
// inode.Unallocated if that region of the file was never written (a sparse
// hole, read back as zeroes).
func (c *Context) blockForRead(n inode.Inode, blockIdx int64) (int64, errors.DriverError) {
	if blockIdx < inode.DBlock {
		return n.Blocks[blockIdx], nil
	}

	indirectIdx := blockIdx - inode.DBlock
	if indirectIdx >= indirectCapacity(c.BlockSize) {
		return 0, errors.ErrFileTooLarge
	}
	if n.Blocks[inode.IndBlock] == inode.Unallocated {
		return inode.Unallocated, nil
	}
	raw := c.DS.ReadDataBlock(n.Blocks[inode.IndBlock])
	ib, err := inode.DecodeIndirectBlock(raw, int(c.BlockSize))
	if err != nil {
		return 0, err
	}
	return ib.Blocks[indirectIdx], nil
}

// ensureBlockForWrite returns the logical data block backing blockIdx in n,
// allocating (and zeroing) a fresh block -- and, if needed, a fresh
// indirect page -- the first time blockIdx is written. n is mutated in
// place; the caller is responsible for persisting it afterward.
//
// The indirect block page itself is placed through the regular RAID
// placement function like any other data block (it is not forced to mirror
// the way directory and inode blocks
// are).
func (c *Context) ensureBlockForWrite(n *inode.Inode, blockIdx int64) (int64, errors.DriverError) {
	if blockIdx < inode.DBlock {
		if n.Blocks[blockIdx] == inode.Unallocated {
			b, err := c.Data.Allocate()
			if err != nil {
				return 0, err
			}
			c.DS.ZeroDataBlock(b)
			n.Blocks[blockIdx] = b
		}
		return n.Blocks[blockIdx], nil
	}

	indirectIdx := blockIdx - inode.DBlock
	if indirectIdx >= indirectCapacity(c.BlockSize) {
		return 0, errors.ErrFileTooLarge
	}

	if n.Blocks[inode.IndBlock] == inode.Unallocated {
		ibBlock, err := c.Data.Allocate()
		if err != nil {
			return 0, err
		}
		blank := inode.NewIndirectBlock(int(c.BlockSize))
		buf := make([]byte, c.BlockSize)
		if err := blank.Encode(buf); err != nil {
			return 0, err
		}
		c.DS.WriteDataBlock(ibBlock, buf)
		n.Blocks[inode.IndBlock] = ibBlock
	}

	raw := c.DS.ReadDataBlock(n.Blocks[inode.IndBlock])
	ib, err := inode.DecodeIndirectBlock(raw, int(c.BlockSize))
	if err != nil {
		return 0, err
	}

	if ib.Blocks[indirectIdx] == inode.Unallocated {
		b, err := c.Data.Allocate()
		if err != nil {
			return 0, err
		}
		c.DS.ZeroDataBlock(b)
		ib.Blocks[indirectIdx] = b
		buf := make([]byte, c.BlockSize)
		if err := ib.Encode(buf); err != nil {
			return 0, err
		}
		c.DS.WriteDataBlock(n.Blocks[inode.IndBlock], buf)
	}
	return ib.Blocks[indirectIdx], nil
}

// Read returns up to length bytes of path's content starting at offset,
// clipped to the file's current size. Reads past EOF, and reads of
// never-written sparse regions, return zero bytes rather than erroring.
func (c *Context) Read(path string, offset, length int64) ([]byte, errors.DriverError) {
	num, err := c.Resolve(path)
	if err != nil {
		return nil, err
	}
	n, err := c.readInode(num)
	if err != nil {
		return nil, err
	}
	if n.IsDir() {
		return nil, errors.ErrIsADirectory
	}

	end := offset + length
	if end > n.Size {
		end = n.Size
	}
	if offset >= end {
		return []byte{}, nil
	}

	out := make([]byte, 0, end-offset)
	for pos := offset; pos < end; {
		blockIdx := pos / c.BlockSize
		blockOff := pos % c.BlockSize

		ptr, err := c.blockForRead(n, blockIdx)
		if err != nil {
			return nil, err
		}
		var blockData []byte
		if ptr == inode.Unallocated {
			blockData = make([]byte, c.BlockSize)
		} else {
			blockData = c.DS.ReadDataBlock(ptr)
		}

		chunk := blockData[blockOff:]
		if remain := end - pos; int64(len(chunk)) > remain {
			chunk = chunk[:remain]
		}
		out = append(out, chunk...)
		pos += int64(len(chunk))
	}

	n.Atim = time.Now()
	if err := c.writeInode(num, n); err != nil {
		return nil, err
	}
	return out, nil
}

// Write stores data at offset in path's content, growing the file and
// allocating blocks (including the indirect page) as needed. Writes that
// would exceed the direct-plus-indirect addressing ceiling fail with
// ErrFileTooLarge before any block is touched.
func (c *Context) Write(path string, offset int64, data []byte) (int64, errors.DriverError) {
	num, err := c.Resolve(path)
	if err != nil {
		return 0, err
	}
	n, err := c.readInode(num)
	if err != nil {
		return 0, err
	}
	if n.IsDir() {
		return 0, errors.ErrIsADirectory
	}

	end := offset + int64(len(data))
	if end > maxFileSize(c.BlockSize) {
		return 0, errors.ErrFileTooLarge
	}

	var written int64
	for pos := offset; pos < end; {
		blockIdx := pos / c.BlockSize
		blockOff := pos % c.BlockSize

		ptr, err := c.ensureBlockForWrite(&n, blockIdx)
		if err != nil {
			return written, err
		}

		blockData := c.DS.ReadDataBlock(ptr)
		copied := int64(copy(blockData[blockOff:], data[written:]))
		c.DS.WriteDataBlock(ptr, blockData)

		pos += copied
		written += copied
	}

	if end > n.Size {
		n.Size = end
	}
	n.Mtim = time.Now()
	if err := c.writeInode(num, n); err != nil {
		return written, err
	}
	return written, nil
}
