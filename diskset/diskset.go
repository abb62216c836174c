package diskset

import (
	"fmt"

	"github.com/dargueta/raidfs/errors"
	"github.com/dargueta/raidfs/layout"
	"github.com/dargueta/raidfs/raidmode"
	"github.com/hashicorp/go-multierror"
)

// DiskSet is the mounted collection of backing disks plus the layout and
// RAID placement derived from their (shared) superblock.
type DiskSet struct {
	Disks     []*Disk
	Superblock layout.Superblock
	Placement  raidmode.Placement
	BlockSize  int64
}

// Mount reads and validates the superblock from every disk, per spec
// invariant 1 ("superblock contents are byte-identical across disks except
// disk_index"). Disk-level failures (unreadable superblock, layout
// mismatch) are aggregated with multierror so a caller sees every bad disk
// at once instead of only the first.
func Mount(disks []*Disk, blockSize int64) (*DiskSet, errors.DriverError) {
	if len(disks) < 2 {
		return nil, errors.ErrInvalidArgument.WithMessage("at least 2 disks are required")
	}

	var merr *multierror.Error
	superblocks := make([]layout.Superblock, len(disks))

	for i, d := range disks {
		if len(d.Data) < int(layout.SuperblockSize) {
			merr = multierror.Append(merr, fmt.Errorf("disk %d (%s): too small for a superblock", i, d.Path))
			continue
		}
		sb, err := layout.Decode(d.Data[:layout.SuperblockSize])
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("disk %d (%s): %w", i, d.Path, err))
			continue
		}
		if sb.DiskIndex != int64(i) {
			merr = multierror.Append(merr, fmt.Errorf(
				"disk %d (%s): superblock disk_index is %d, expected %d",
				i, d.Path, sb.DiskIndex, i))
			continue
		}
		superblocks[i] = sb
	}

	if merr.ErrorOrNil() != nil {
		return nil, errors.ErrIOFailed.WithMessage(merr.Error())
	}

	reference := superblocks[0]
	for i, sb := range superblocks[1:] {
		if !reference.SameLayout(sb) {
			merr = multierror.Append(merr, fmt.Errorf(
				"disk %d's superblock layout does not match disk 0's", i+1))
		}
	}
	if merr.ErrorOrNil() != nil {
		return nil, errors.ErrFileSystemCorrupted.WithMessage(merr.Error())
	}

	placement, perr := raidmode.New(reference.RaidMode, len(disks))
	if perr != nil {
		return nil, errors.ErrInvalidArgument.WithMessage(perr.Error())
	}

	return &DiskSet{
		Disks:      disks,
		Superblock: reference,
		Placement:  placement,
		BlockSize:  blockSize,
	}, nil
}

// Unmount flushes every disk to its backing file.
func (ds *DiskSet) Unmount() errors.DriverError {
	var merr *multierror.Error
	for _, d := range ds.Disks {
		if err := d.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr.ErrorOrNil() != nil {
		return errors.NewIOError(merr)
	}
	return nil
}

// blockOffset returns the byte offset of per-disk block index local within
// a region starting at regionStart (e.g. the inode or data-block region's
// base offset).
func blockOffset(regionStart, blockSize, local int64) int64 {
	return regionStart + local*blockSize
}

// ReadMirroredRegion reads length bytes at offset from disk 0. Inode,
// bitmap, and directory regions are always mirrored, so any disk's copy is
// authoritative to read from; disk 0 is the convention used throughout this
// module (matching the path resolver's "always read from disk 0" rule).
func (ds *DiskSet) ReadMirroredRegion(offset, length int64) []byte {
	out := make([]byte, length)
	copy(out, ds.Disks[0].Data[offset:offset+length])
	return out
}

// WriteMirroredRegion writes data to every disk at offset. The inode
// region, inode bitmap, and directory blocks are always mirrored, and the
// data bitmap is always mirrored too -- only data block *contents* vary by
// RAID mode.
func (ds *DiskSet) WriteMirroredRegion(offset int64, data []byte) {
	for _, d := range ds.Disks {
		copy(d.Data[offset:offset+int64(len(data))], data)
	}
}

// ReadDataBlock reads one data block's current contents through the RAID
// placement function. For stripe mode this reads from the single owning
// disk; for mirror modes it reads from disk 0 of the replica set, or
// performs majority verification first if the placement is verified-mirror.
func (ds *DiskSet) ReadDataBlock(b int64) []byte {
	if ds.Placement.Mode() == layout.ModeVerifiedMirror {
		replicas := ds.Placement.Replicas(b)
		copies := make([][]byte, len(replicas))
		for i, loc := range replicas {
			copies[i] = ds.readAt(loc)
		}
		if winner, ok := raidmode.MajorityVote(copies); ok {
			return winner
		}
		// No majority: fall back to the primary location rather than
		// failing the read outright. A conformant implementation could
		// return ErrFileSystemCorrupted instead; this module favors
		// availability, treating verified mirror as optional hardening
		// rather than a hard consistency guarantee (see DESIGN.md).
	}

	loc := ds.Placement.Locate(b)
	return ds.readAt(loc)
}

func (ds *DiskSet) readAt(loc raidmode.Location) []byte {
	start := blockOffset(ds.Superblock.DBlocksPtr, ds.BlockSize, loc.Local)
	out := make([]byte, ds.BlockSize)
	copy(out, ds.Disks[loc.Disk].Data[start:start+ds.BlockSize])
	return out
}

// WriteDataBlock writes data (exactly one block's worth) to every replica
// location for logical data block b, per the RAID placement's Replicas.
func (ds *DiskSet) WriteDataBlock(b int64, data []byte) {
	for _, loc := range ds.Placement.Replicas(b) {
		start := blockOffset(ds.Superblock.DBlocksPtr, ds.BlockSize, loc.Local)
		copy(ds.Disks[loc.Disk].Data[start:start+ds.BlockSize], data)
	}
}

// ZeroDataBlock writes an all-zero block to every replica location for b.
func (ds *DiskSet) ZeroDataBlock(b int64) {
	zero := make([]byte, ds.BlockSize)
	ds.WriteDataBlock(b, zero)
}

// InodeOffset returns the mirrored-region byte offset of inode i's slot.
func (ds *DiskSet) InodeOffset(i int64) int64 {
	return blockOffset(ds.Superblock.IBlocksPtr, ds.BlockSize, i)
}

// ReadDirectoryBlock reads logical data block b as a directory-entry page.
// Directory blocks (like inode blocks) are always mirrored irrespective of
// RAID mode: every disk holds a full copy at local index b itself, not at
// the RAID placement function's location. This differs from
// ReadDataBlock/WriteDataBlock, which route plain file content and
// indirect-block pages through ds.Placement.
func (ds *DiskSet) ReadDirectoryBlock(b int64) []byte {
	start := blockOffset(ds.Superblock.DBlocksPtr, ds.BlockSize, b)
	out := make([]byte, ds.BlockSize)
	copy(out, ds.Disks[0].Data[start:start+ds.BlockSize])
	return out
}

// WriteDirectoryBlock writes data to logical data block b's slot on every
// disk (see ReadDirectoryBlock).
func (ds *DiskSet) WriteDirectoryBlock(b int64, data []byte) {
	start := blockOffset(ds.Superblock.DBlocksPtr, ds.BlockSize, b)
	for _, d := range ds.Disks {
		copy(d.Data[start:start+ds.BlockSize], data)
	}
}
