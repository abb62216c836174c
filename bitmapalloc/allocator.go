// Package bitmapalloc implements the inode and data-block allocators:
// linear first-fit scans over bitmap-backed free maps, mirrored identically
// across every disk. RAID-mode-dependent placement of the underlying block
// *content* lives in package raidmode instead; the bitmaps themselves are
// not RAID-mode-dependent (see the DataAllocator doc comment for why).
//
// Grounded on file_systems/unixv1/driver.go's blockFreeMap field, which
// keeps a github.com/boljen/go-bitmap Bitmap in memory and scans it
// linearly in FSStat; this package generalizes that single-disk bitmap into
// one-bitmap-per-disk, mirrored across all disks.
package bitmapalloc

import (
	"github.com/boljen/go-bitmap"
	"github.com/dargueta/raidfs/errors"
)

// InodeAllocator scans inode slots 0..NumInodes-1. A slot is free iff every
// disk's inode bitmap reports it free; allocation sets the bit on every
// disk, since the inode bitmap is mirrored byte-for-byte across all disks
// regardless of RAID mode.
type InodeAllocator struct {
	bitmaps   []bitmap.Bitmap // one per disk
	numInodes int64
}

// NewInodeAllocator wraps one bitmap per disk. Every bitmap must already be
// sized to hold numInodes bits.
func NewInodeAllocator(bitmaps []bitmap.Bitmap, numInodes int64) *InodeAllocator {
	return &InodeAllocator{bitmaps: bitmaps, numInodes: numInodes}
}

func (a *InodeAllocator) isFree(i int64) bool {
	for _, bm := range a.bitmaps {
		if bm.Get(int(i)) {
			return false
		}
	}
	return true
}

// Allocate finds the lowest-numbered free inode slot and marks it used on
// every disk. Returns ErrNoInodesLeft if none are free.
func (a *InodeAllocator) Allocate() (int64, errors.DriverError) {
	for i := int64(0); i < a.numInodes; i++ {
		if a.isFree(i) {
			for _, bm := range a.bitmaps {
				bm.Set(int(i), true)
			}
			return i, nil
		}
	}
	return 0, errors.ErrNoInodesLeft
}

// MarkUsed force-marks inode i as used on every disk, used by the
// formatter to reserve inode 0 for the root directory.
func (a *InodeAllocator) MarkUsed(i int64) {
	for _, bm := range a.bitmaps {
		bm.Set(int(i), true)
	}
}

// Free clears inode i's bit on every disk.
func (a *InodeAllocator) Free(i int64) {
	for _, bm := range a.bitmaps {
		bm.Set(int(i), false)
	}
}

// IsAllocated reports whether inode i is currently marked used.
func (a *InodeAllocator) IsAllocated(i int64) bool {
	return !a.isFree(i)
}

// -----------------------------------------------------------------------------

// DataAllocator implements the data-block allocator: the free-block bitmap
// is always fully mirrored across every disk, exactly like the inode
// bitmap, regardless of RAID mode -- even under stripe mode, where a given
// logical block's *content* lives on only one disk. Only block content
// placement varies by RAID mode; the bitmap bookkeeping never does. See
// DESIGN.md for the full writeup.
type DataAllocator struct {
	bitmaps       []bitmap.Bitmap // one per disk, always kept identical
	numDataBlocks int64
}

// NewDataAllocator wraps one bitmap per disk, each sized to hold
// numDataBlocks bits.
func NewDataAllocator(bitmaps []bitmap.Bitmap, numDataBlocks int64) *DataAllocator {
	return &DataAllocator{bitmaps: bitmaps, numDataBlocks: numDataBlocks}
}

func (a *DataAllocator) isFree(b int64) bool {
	for _, bm := range a.bitmaps {
		if bm.Get(int(b)) {
			return false
		}
	}
	return true
}

func (a *DataAllocator) markUsed(b int64, used bool) {
	for _, bm := range a.bitmaps {
		bm.Set(int(b), used)
	}
}

// Allocate finds the lowest-numbered free logical data block and marks it
// used on every disk. Returns ErrNoSpaceOnDevice if none are free.
func (a *DataAllocator) Allocate() (int64, errors.DriverError) {
	for b := int64(0); b < a.numDataBlocks; b++ {
		if a.isFree(b) {
			a.markUsed(b, true)
			return b, nil
		}
	}
	return 0, errors.ErrNoSpaceOnDevice
}

// Free clears logical data block b's bit on every disk.
func (a *DataAllocator) Free(b int64) {
	a.markUsed(b, false)
}

// IsAllocated reports whether logical data block b is currently marked
// used.
func (a *DataAllocator) IsAllocated(b int64) bool {
	return !a.isFree(b)
}
