package inode

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/raidfs/errors"
)

// IndirectBlock is a page of block pointers: an array of block indices
// whose length is BLOCK_SIZE / sizeof(block_index).
type IndirectBlock struct {
	Blocks []int64
}

// NewIndirectBlock returns an indirect block with capacity entries, all
// unallocated, for a block of the given size.
func NewIndirectBlock(blockSize int) IndirectBlock {
	capacity := blockSize / 8
	blocks := make([]int64, capacity)
	for i := range blocks {
		blocks[i] = Unallocated
	}
	return IndirectBlock{Blocks: blocks}
}

// Encode writes the indirect block's wire representation (a flat array of
// little-endian int64s) into dst, which must be at least blockSize bytes.
func (ib IndirectBlock) Encode(dst []byte) errors.DriverError {
	buf := new(bytes.Buffer)
	buf.Grow(len(ib.Blocks) * 8)
	if err := binary.Write(buf, binary.LittleEndian, ib.Blocks); err != nil {
		return errors.NewIOError(err)
	}
	if len(dst) < buf.Len() {
		return errors.ErrInvalidArgument.WithMessage("indirect block buffer too small")
	}
	copy(dst, buf.Bytes())
	return nil
}

// DecodeIndirectBlock parses an indirect block occupying a block of
// blockSize bytes.
func DecodeIndirectBlock(src []byte, blockSize int) (IndirectBlock, errors.DriverError) {
	capacity := blockSize / 8
	if len(src) < capacity*8 {
		return IndirectBlock{}, errors.ErrFileSystemCorrupted.WithMessage(
			"indirect block buffer too small")
	}

	blocks := make([]int64, capacity)
	reader := bytes.NewReader(src[:capacity*8])
	if err := binary.Read(reader, binary.LittleEndian, blocks); err != nil {
		return IndirectBlock{}, errors.NewIOError(err)
	}
	return IndirectBlock{Blocks: blocks}, nil
}
