// Package layout implements the on-disk superblock: the header replicated
// (almost) identically across every backing disk that describes the region
// layout of the rest of the image.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/raidfs/errors"
)

// Mode is the RAID placement mode recorded in the superblock.
type Mode int32

const (
	ModeStripe         Mode = 0
	ModeMirror         Mode = 1
	ModeVerifiedMirror Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeStripe:
		return "stripe"
	case ModeMirror:
		return "mirror"
	case ModeVerifiedMirror:
		return "verified-mirror"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// ParseMode converts a formatter CLI token ("0", "1", "1v") to a Mode.
func ParseMode(token string) (Mode, errors.DriverError) {
	switch token {
	case "0":
		return ModeStripe, nil
	case "1":
		return ModeMirror, nil
	case "1v":
		return ModeVerifiedMirror, nil
	default:
		return 0, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unrecognized RAID mode token %q", token))
	}
}

// SuperblockSize is the fixed on-disk size of the superblock record, in
// bytes. It is deliberately block-sized-independent: the i_bitmap always
// begins immediately after it (spec 4.1 item 1).
const SuperblockSize = 72

// Superblock is the header stored at offset 0 of every disk. Per spec
// invariant 1, every field is byte-identical across disks except DiskIndex.
type Superblock struct {
	NumInodes     int64
	NumDataBlocks int64
	IBitmapPtr    int64
	DBitmapPtr    int64
	IBlocksPtr    int64
	DBlocksPtr    int64
	NumDisks      int64
	DiskIndex     int64
	RaidMode      Mode
}

// roundUp32 rounds n up to the next multiple of 32; inode and data-block
// counts are always rounded up to a multiple of 32 at format time.
func roundUp32(n int64) int64 {
	if n%32 == 0 {
		return n
	}
	return n + (32 - n%32)
}

// ceilDiv8 returns ceil(n/8), the number of bytes needed to hold n bitmap
// bits.
func ceilDiv8(n int64) int64 {
	return (n + 7) / 8
}

// BitmapBytes returns the number of bytes needed to hold n bitmap bits. It
// is the exported form of ceilDiv8, used by callers (package core) that
// need to size a bitmap byte slice against a superblock's NumInodes or
// NumDataBlocks.
func BitmapBytes(n int64) int64 {
	return ceilDiv8(n)
}

// alignUp rounds offset up to the next multiple of blockSize.
func alignUp(offset, blockSize int64) int64 {
	if offset%blockSize == 0 {
		return offset
	}
	return offset + (blockSize - offset%blockSize)
}

// Compute derives a fully-populated Superblock (for disk diskIndex of
// numDisks) from the requested inode/block counts and RAID mode, laying out
// the inode bitmap, data bitmap, inode region, and data-block region in
// order immediately after the superblock itself.
//
// numInodes and numDataBlocks are rounded up to multiples of 32 before any
// offsets are computed.
func Compute(
	blockSize int64,
	numInodes, numDataBlocks int64,
	numDisks, diskIndex int64,
	mode Mode,
) Superblock {
	numInodes = roundUp32(numInodes)
	numDataBlocks = roundUp32(numDataBlocks)

	iBitmapPtr := int64(SuperblockSize)
	dBitmapPtr := iBitmapPtr + ceilDiv8(numInodes)
	iBlocksPtr := alignUp(dBitmapPtr+ceilDiv8(numDataBlocks), blockSize)
	dBlocksPtr := iBlocksPtr + numInodes*blockSize

	return Superblock{
		NumInodes:     numInodes,
		NumDataBlocks: numDataBlocks,
		IBitmapPtr:    iBitmapPtr,
		DBitmapPtr:    dBitmapPtr,
		IBlocksPtr:    iBlocksPtr,
		DBlocksPtr:    dBlocksPtr,
		NumDisks:      numDisks,
		DiskIndex:     diskIndex,
		RaidMode:      mode,
	}
}

// TotalImageSize returns the minimum size, in bytes, a backing file must
// have to hold this layout.
func (sb Superblock) TotalImageSize(blockSize int64) int64 {
	return sb.DBlocksPtr + sb.NumDataBlocks*blockSize
}

// rawSuperblock is the little-endian, fixed-layout wire format for a
// Superblock. All block pointers and offsets are signed 64-bit per spec
// section 6.3.
type rawSuperblock struct {
	NumInodes     int64
	NumDataBlocks int64
	IBitmapPtr    int64
	DBitmapPtr    int64
	IBlocksPtr    int64
	DBlocksPtr    int64
	NumDisks      int64
	DiskIndex     int64
	RaidMode      int32
	_             int32
}

// Encode writes the superblock's wire representation into dst, which must
// be at least SuperblockSize bytes.
func (sb Superblock) Encode(dst []byte) errors.DriverError {
	if len(dst) < SuperblockSize {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("superblock buffer too small: need %d bytes, got %d",
				SuperblockSize, len(dst)))
	}

	raw := rawSuperblock{
		NumInodes:     sb.NumInodes,
		NumDataBlocks: sb.NumDataBlocks,
		IBitmapPtr:    sb.IBitmapPtr,
		DBitmapPtr:    sb.DBitmapPtr,
		IBlocksPtr:    sb.IBlocksPtr,
		DBlocksPtr:    sb.DBlocksPtr,
		NumDisks:      sb.NumDisks,
		DiskIndex:     sb.DiskIndex,
		RaidMode:      int32(sb.RaidMode),
	}

	buf := new(bytes.Buffer)
	buf.Grow(SuperblockSize)
	if err := binary.Write(buf, binary.LittleEndian, &raw); err != nil {
		return errors.NewIOError(err)
	}
	copy(dst, buf.Bytes())
	return nil
}

// Decode parses a superblock from its on-disk wire representation. src must
// be at least SuperblockSize bytes.
func Decode(src []byte) (Superblock, errors.DriverError) {
	if len(src) < SuperblockSize {
		return Superblock{}, errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf("superblock buffer too small: need %d bytes, got %d",
				SuperblockSize, len(src)))
	}

	var raw rawSuperblock
	reader := bytes.NewReader(src[:SuperblockSize])
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		return Superblock{}, errors.NewIOError(err)
	}

	return Superblock{
		NumInodes:     raw.NumInodes,
		NumDataBlocks: raw.NumDataBlocks,
		IBitmapPtr:    raw.IBitmapPtr,
		DBitmapPtr:    raw.DBitmapPtr,
		IBlocksPtr:    raw.IBlocksPtr,
		DBlocksPtr:    raw.DBlocksPtr,
		NumDisks:      raw.NumDisks,
		DiskIndex:     raw.DiskIndex,
		RaidMode:      Mode(raw.RaidMode),
	}, nil
}

// SameLayout reports whether two superblocks describe the same layout,
// ignoring DiskIndex. Superblock contents are byte-identical across disks
// except for disk_index.
func (sb Superblock) SameLayout(other Superblock) bool {
	a, b := sb, other
	a.DiskIndex, b.DiskIndex = 0, 0
	return a == b
}
