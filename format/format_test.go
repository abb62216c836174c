package format_test

import (
	"io"
	"testing"

	"github.com/dargueta/raidfs/diskset"
	"github.com/dargueta/raidfs/format"
	"github.com/dargueta/raidfs/inode"
	"github.com/dargueta/raidfs/layout"
	raidfstesting "github.com/dargueta/raidfs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockSize = 512

func blankDisks(t *testing.T, numInodes, numDataBlocks, numDisks int64, mode layout.Mode) []*diskset.Disk {
	t.Helper()
	sb := layout.Compute(blockSize, numInodes, numDataBlocks, numDisks, 0, mode)
	size := sb.TotalImageSize(blockSize)

	disks := make([]*diskset.Disk, numDisks)
	for i := range disks {
		disks[i] = diskset.WrapBytes("disk", make([]byte, size))
	}
	return disks
}

func TestFormat_WritesIdenticalSuperblocksExceptDiskIndex(t *testing.T) {
	disks := blankDisks(t, 32, 32, 2, layout.ModeMirror)
	err := format.Format(disks, blockSize, 32, 32, layout.ModeMirror)
	require.Nil(t, err)

	sb0, derr := layout.Decode(disks[0].Data[:layout.SuperblockSize])
	require.Nil(t, derr)
	sb1, derr := layout.Decode(disks[1].Data[:layout.SuperblockSize])
	require.Nil(t, derr)

	assert.True(t, sb0.SameLayout(sb1))
	assert.EqualValues(t, 0, sb0.DiskIndex)
	assert.EqualValues(t, 1, sb1.DiskIndex)
}

func TestFormat_RootInodeIsAllocatedAndIsADirectory(t *testing.T) {
	disks := blankDisks(t, 32, 32, 2, layout.ModeMirror)
	require.Nil(t, format.Format(disks, blockSize, 32, 32, layout.ModeMirror))

	sb, err := layout.Decode(disks[0].Data[:layout.SuperblockSize])
	require.Nil(t, err)

	rootBuf := disks[0].Data[sb.IBlocksPtr : sb.IBlocksPtr+blockSize]
	root, derr := inode.Decode(rootBuf)
	require.Nil(t, derr)
	assert.True(t, root.IsDir())
	assert.EqualValues(t, 2, root.Nlinks)
}

func TestFormat_RootDirectoryHasNoStoredBlocksOrEntries(t *testing.T) {
	disks := blankDisks(t, 32, 32, 2, layout.ModeMirror)
	require.Nil(t, format.Format(disks, blockSize, 32, 32, layout.ModeMirror))

	sb, err := layout.Decode(disks[0].Data[:layout.SuperblockSize])
	require.Nil(t, err)

	rootBuf := disks[0].Data[sb.IBlocksPtr : sb.IBlocksPtr+blockSize]
	root, derr := inode.Decode(rootBuf)
	require.Nil(t, derr)

	for _, b := range root.Blocks {
		assert.EqualValues(t, inode.Unallocated, b)
	}
	assert.EqualValues(t, 0, root.Size)
}

func TestFormat_OverwritesPreexistingGarbageData(t *testing.T) {
	disks := blankDisks(t, 32, 32, 2, layout.ModeMirror)
	for _, d := range disks {
		copy(d.Data, raidfstesting.RandomBytes(t, len(d.Data)))
	}

	require.Nil(t, format.Format(disks, blockSize, 32, 32, layout.ModeMirror))

	stream := raidfstesting.AsStream(disks[0].Data)
	header := make([]byte, layout.SuperblockSize)
	_, err := io.ReadFull(stream, header)
	require.Nil(t, err)

	sb, derr := layout.Decode(header)
	require.Nil(t, derr)
	assert.EqualValues(t, 0, sb.DiskIndex)
}

func TestFormat_RejectsUndersizedDisk(t *testing.T) {
	disks := blankDisks(t, 32, 32, 2, layout.ModeMirror)
	disks[1] = diskset.WrapBytes("tiny", make([]byte, 16))

	err := format.Format(disks, blockSize, 32, 32, layout.ModeMirror)
	require.NotNil(t, err)
}

func TestFormat_RejectsSingleDisk(t *testing.T) {
	disks := blankDisks(t, 32, 32, 2, layout.ModeMirror)
	_, err := diskset.Mount(disks[:1], blockSize)
	require.NotNil(t, err)

	err = format.Format(disks[:1], blockSize, 32, 32, layout.ModeMirror)
	require.NotNil(t, err)
}
