// Package format implements the on-disk formatter: it lays out a fresh
// superblock, inode and data bitmaps, and a root directory across every
// backing disk of a new raidfs volume.
//
// Grounded on file_systems/unixv1/format.go, which computes region sizes,
// opens a bytewriter over the image's data region, and writes the
// superblock-equivalent header, bitmaps, and root inode/dirent pair
// sequentially; this module generalizes that single-disk sequence to every
// disk in the set, with the RAID-mode-independent mirroring (see
// DESIGN.md's resolution of the data-bitmap contradiction) this needs for
// bitmaps, inodes, and directory blocks.
package format

import (
	"os"
	"time"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/raidfs/diskset"
	"github.com/dargueta/raidfs/errors"
	"github.com/dargueta/raidfs/inode"
	"github.com/dargueta/raidfs/layout"
	"github.com/noxer/bytewriter"
)

// Format lays out a brand-new volume of numInodes inodes and
// numDataBlocks data blocks, striped or mirrored per mode, across disks.
// Every disk's backing slice must already be at least as large as the
// computed layout requires; use diskset.MapFile (or resize the backing
// file yourself) before calling Format.
func Format(
	disks []*diskset.Disk,
	blockSize int64,
	numInodes, numDataBlocks int64,
	mode layout.Mode,
) errors.DriverError {
	if len(disks) < 2 {
		return errors.ErrInvalidArgument.WithMessage("at least 2 disks are required")
	}
	numDisks := int64(len(disks))

	superblocks := make([]layout.Superblock, numDisks)
	for i := range disks {
		superblocks[i] = layout.Compute(blockSize, numInodes, numDataBlocks, numDisks, int64(i), mode)
	}
	sb := superblocks[0]
	required := sb.TotalImageSize(blockSize)

	for i, d := range disks {
		if int64(len(d.Data)) < required {
			return errors.ErrInvalidArgument.WithMessage(
				"disk " + d.Path + " is smaller than the computed image size")
		}
		zero(d.Data)
		if err := superblocks[i].Encode(d.Data[:layout.SuperblockSize]); err != nil {
			return err
		}
	}

	ibBytes := layout.BitmapBytes(sb.NumInodes)
	for _, d := range disks {
		// bitmap.Bitmap views share memory with the disk's byte slice, so
		// Set below writes straight through to d.Data.
		ib := bitmap.Bitmap(d.Data[sb.IBitmapPtr : sb.IBitmapPtr+ibBytes])
		ib.Set(0, true) // inode 0 is always the root directory
	}

	// The root directory starts out empty: every block pointer unallocated,
	// no data block claimed. "." and ".." are never stored; they're
	// synthesized by the caller at readdir time.
	root := inode.New(0, os.ModeDir|0777, 0, 0, time.Now())

	rootBuf := make([]byte, blockSize)
	if err := root.Encode(rootBuf); err != nil {
		return err
	}
	for i, d := range disks {
		writer := bytewriter.New(d.Data[superblocks[i].IBlocksPtr:])
		if _, err := writer.Write(rootBuf); err != nil {
			return errors.NewIOError(err)
		}
	}

	for _, d := range disks {
		if err := d.Msync(); err != nil {
			return err
		}
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
