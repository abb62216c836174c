// Package inode implements the fixed-size inode record: one BLOCK_SIZE-byte
// slot per inode index, direct and single-level indirect block pointers.
//
// Encode/decode pairs a raw, fixed-width struct with encoding/binary, the
// same shape as file_systems/unixv1/inode.go's RawInode, generalized from a
// 16-bit Unix v1 layout to the wider fields this inode needs.
package inode

import (
	"bytes"
	"encoding/binary"
	"os"
	"time"

	"github.com/dargueta/raidfs/errors"
)

// NBlocks is the number of entries in an inode's block pointer array. The
// last entry is reserved as the indirect pointer; the rest are direct.
const NBlocks = 13

// IndBlock is the index, within Blocks, of the indirect block pointer.
const IndBlock = NBlocks - 1

// DBlock is the number of direct block slots.
const DBlock = NBlocks - 1

// Unallocated is the sentinel value for an empty block pointer slot.
const Unallocated int64 = -1

// Inode is the in-memory representation of one inode slot.
type Inode struct {
	Num    int64
	Mode   os.FileMode
	Uid    uint32
	Gid    uint32
	Atim   time.Time
	Mtim   time.Time
	Ctim   time.Time
	Size   int64
	Nlinks int64
	Blocks [NBlocks]int64
}

// IsDir reports whether this inode describes a directory.
func (n Inode) IsDir() bool {
	return n.Mode&os.ModeDir != 0
}

// New builds a freshly-allocated inode: all block pointers unallocated,
// nlinks initialized to 2 for directories (for "." and the parent's entry)
// or 1 for regular files.
func New(num int64, mode os.FileMode, uid, gid uint32, now time.Time) Inode {
	nlinks := int64(1)
	if mode&os.ModeDir != 0 {
		nlinks = 2
	}

	n := Inode{
		Num:    num,
		Mode:   mode,
		Uid:    uid,
		Gid:    gid,
		Atim:   now,
		Mtim:   now,
		Ctim:   now,
		Nlinks: nlinks,
	}
	for i := range n.Blocks {
		n.Blocks[i] = Unallocated
	}
	return n
}

// rawInode is the little-endian, fixed-width wire format for an Inode.
// Block pointers and size are signed 64-bit; timestamps are stored as whole
// seconds since the epoch, not sub-second precision.
type rawInode struct {
	Num    int64
	Mode   uint32
	Uid    uint32
	Gid    uint32
	_      uint32
	Atim   int64
	Mtim   int64
	Ctim   int64
	Size   int64
	Nlinks int64
	Blocks [NBlocks]int64
}

// WireSize returns the encoded length of a rawInode, used by callers that need to
// know how much of a BLOCK_SIZE slot the inode record actually occupies.
func WireSize() int {
	return binary.Size(rawInode{})
}

// Encode writes the inode's wire representation into dst, which must hold
// at least WireSize() bytes (callers pad the remainder of the BLOCK_SIZE
// slot with zeroes; the inode body never claims the whole block).
func (n Inode) Encode(dst []byte) errors.DriverError {
	raw := rawInode{
		Num:    n.Num,
		Mode:   uint32(n.Mode),
		Uid:    n.Uid,
		Gid:    n.Gid,
		Atim:   n.Atim.Unix(),
		Mtim:   n.Mtim.Unix(),
		Ctim:   n.Ctim.Unix(),
		Size:   n.Size,
		Nlinks: n.Nlinks,
		Blocks: n.Blocks,
	}

	buf := new(bytes.Buffer)
	buf.Grow(WireSize())
	if err := binary.Write(buf, binary.LittleEndian, &raw); err != nil {
		return errors.NewIOError(err)
	}
	if len(dst) < buf.Len() {
		return errors.ErrInvalidArgument.WithMessage("inode buffer too small")
	}
	copy(dst, buf.Bytes())
	return nil
}

// Decode parses an inode from its on-disk wire representation.
func Decode(src []byte) (Inode, errors.DriverError) {
	if len(src) < WireSize() {
		return Inode{}, errors.ErrFileSystemCorrupted.WithMessage("inode buffer too small")
	}

	var raw rawInode
	reader := bytes.NewReader(src[:WireSize()])
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		return Inode{}, errors.NewIOError(err)
	}

	return Inode{
		Num:    raw.Num,
		Mode:   os.FileMode(raw.Mode),
		Uid:    raw.Uid,
		Gid:    raw.Gid,
		Atim:   time.Unix(raw.Atim, 0).UTC(),
		Mtim:   time.Unix(raw.Mtim, 0).UTC(),
		Ctim:   time.Unix(raw.Ctim, 0).UTC(),
		Size:   raw.Size,
		Nlinks: raw.Nlinks,
		Blocks: raw.Blocks,
	}, nil
}

// Zeroed returns the all-zero, unallocated-looking inode used when a slot
// is freed; freed slots are always fully zeroed, never left with stale
// field values.
func Zeroed() Inode {
	return Inode{}
}
