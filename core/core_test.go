package core_test

import (
	"os"
	"testing"

	"github.com/dargueta/raidfs/core"
	"github.com/dargueta/raidfs/dentry"
	"github.com/dargueta/raidfs/layout"
	raidfstesting "github.com/dargueta/raidfs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockSize = 512

func mountFixture(t *testing.T, numInodes, numDataBlocks, numDisks int64, mode layout.Mode) *core.Context {
	t.Helper()
	ds := raidfstesting.NewFormattedDiskSet(t, blockSize, numInodes, numDataBlocks, numDisks, mode)
	return core.Mount(ds)
}

func TestMkdir_CreatesDirectoryWithTwoLinks(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)

	num, err := ctx.Mkdir("/sub", os.ModeDir|0755, 0, 0)
	require.Nil(t, err)

	d := core.NewDispatcher(ctx)
	n, errno := d.Getattr("/sub")
	assert.Equal(t, 0, errno)
	assert.True(t, n.IsDir())
	assert.EqualValues(t, 2, n.Nlinks)
	assert.EqualValues(t, num, n.Num)
}

func TestMkdir_BumpsParentLinkCount(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	root, err := ctx.Resolve("/")
	require.Nil(t, err)
	_ = root

	d := core.NewDispatcher(ctx)
	before, _ := d.Getattr("/")
	_, mkErr := ctx.Mkdir("/sub", os.ModeDir|0755, 0, 0)
	require.Nil(t, mkErr)
	after, _ := d.Getattr("/")

	assert.Equal(t, before.Nlinks+1, after.Nlinks)
}

func TestMknodAndWriteAndReadRoundTrip(t *testing.T) {
	ctx := mountFixture(t, 32, 64, 2, layout.ModeMirror)
	_, err := ctx.Mknod("/file.txt", 0644, 0, 0)
	require.Nil(t, err)

	payload := []byte("hello, raidfs")
	n, err := ctx.Write("/file.txt", 0, payload)
	require.Nil(t, err)
	assert.EqualValues(t, len(payload), n)

	got, err := ctx.Read("/file.txt", 0, int64(len(payload)))
	require.Nil(t, err)
	assert.Equal(t, payload, got)
}

func TestWrite_SpansIntoIndirectBlock(t *testing.T) {
	ctx := mountFixture(t, 32, 4096, 2, layout.ModeMirror)
	_, err := ctx.Mknod("/big.bin", 0644, 0, 0)
	require.Nil(t, err)

	// Direct pointers cover inode.DBlock blocks; write one block past that
	// boundary to force indirect-block allocation.
	offset := int64(12) * blockSize
	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i)
	}

	_, err = ctx.Write("/big.bin", offset, payload)
	require.Nil(t, err)

	got, err := ctx.Read("/big.bin", offset, int64(len(payload)))
	require.Nil(t, err)
	assert.Equal(t, payload, got)
}

func TestUnlink_RemovesEntryAndFreesInodeAtZeroLinks(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	childNum, err := ctx.Mknod("/gone.txt", 0644, 0, 0)
	require.Nil(t, err)
	assert.True(t, ctx.Inodes.IsAllocated(childNum))

	require.Nil(t, ctx.Unlink("/gone.txt"))
	assert.False(t, ctx.Inodes.IsAllocated(childNum))

	_, err = ctx.Resolve("/gone.txt")
	require.NotNil(t, err)
	assert.Equal(t, -2, err.Errno()) // ENOENT
}

func TestRmdir_RejectsNonEmptyDirectory(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	_, err := ctx.Mkdir("/sub", os.ModeDir|0755, 0, 0)
	require.Nil(t, err)
	_, err = ctx.Mknod("/sub/file.txt", 0644, 0, 0)
	require.Nil(t, err)

	err = ctx.Rmdir("/sub")
	require.NotNil(t, err)
	assert.Equal(t, -39, err.Errno()) // ENOTEMPTY
}

func TestRmdir_RemovesEmptyDirectoryAndDropsParentLink(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	childNum, err := ctx.Mkdir("/sub", os.ModeDir|0755, 0, 0)
	require.Nil(t, err)

	d := core.NewDispatcher(ctx)
	before, errno := d.Getattr("/")
	require.Equal(t, 0, errno)

	require.Nil(t, ctx.Rmdir("/sub"))
	assert.False(t, ctx.Inodes.IsAllocated(childNum))

	_, err = ctx.Resolve("/sub")
	require.NotNil(t, err)

	after, errno := d.Getattr("/")
	require.Equal(t, 0, errno)
	assert.Equal(t, before.Nlinks-1, after.Nlinks)
}

func TestReaddir_ListsDotDotDotAndEntries(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	_, err := ctx.Mknod("/a.txt", 0644, 0, 0)
	require.Nil(t, err)
	_, err = ctx.Mkdir("/subdir", os.ModeDir|0755, 0, 0)
	require.Nil(t, err)

	d := core.NewDispatcher(ctx)
	entries, errno := d.Readdir("/")
	require.Equal(t, 0, errno)

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["."])
	assert.True(t, names[".."])
	assert.True(t, names["a.txt"])
	assert.True(t, names["subdir"])
}

func TestResolve_RejectsRootPathForParentOperations(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	err := ctx.Unlink("/")
	require.NotNil(t, err)
	assert.Equal(t, -22, err.Errno()) // EINVAL
}

func TestMkdir_MasksModeTo0777AndSetsDirectoryBit(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	// Pass a mode with an extraneous high bit (the setuid bit) set alongside
	// legitimate permission bits; only the low 0777 permission bits should
	// survive, OR'd with ModeDir.
	_, err := ctx.Mkdir("/sub", os.ModeDir|os.ModeSetuid|0755, 0, 0)
	require.Nil(t, err)

	d := core.NewDispatcher(ctx)
	n, errno := d.Getattr("/sub")
	require.Equal(t, 0, errno)
	assert.True(t, n.IsDir())
	assert.EqualValues(t, os.ModeDir|0755, n.Mode)
}

func TestMkdir_ChildDirectoryStartsEmptyWithNoStoredBlocks(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	_, err := ctx.Mkdir("/sub", os.ModeDir|0755, 0, 0)
	require.Nil(t, err)

	d := core.NewDispatcher(ctx)
	n, errno := d.Getattr("/sub")
	require.Equal(t, 0, errno)
	assert.EqualValues(t, 0, n.Size)
	for _, b := range n.Blocks {
		assert.EqualValues(t, -1, b)
	}
}

func TestMknod_BumpsParentLinkCount(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	d := core.NewDispatcher(ctx)

	before, _ := d.Getattr("/")
	_, err := ctx.Mknod("/a.txt", 0644, 0, 0)
	require.Nil(t, err)
	after, _ := d.Getattr("/")

	assert.Equal(t, before.Nlinks+1, after.Nlinks)
}

func TestUnlink_DropsParentLinkCount(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	d := core.NewDispatcher(ctx)

	_, err := ctx.Mknod("/a.txt", 0644, 0, 0)
	require.Nil(t, err)
	before, _ := d.Getattr("/")

	require.Nil(t, ctx.Unlink("/a.txt"))
	after, _ := d.Getattr("/")

	assert.Equal(t, before.Nlinks-1, after.Nlinks)
}

func TestDirectorySize_GrowsAndShrinksWithEntries(t *testing.T) {
	ctx := mountFixture(t, 32, 32, 2, layout.ModeMirror)
	d := core.NewDispatcher(ctx)

	root, errno := d.Getattr("/")
	require.Equal(t, 0, errno)
	baseline := root.Size

	_, err := ctx.Mknod("/a.txt", 0644, 0, 0)
	require.Nil(t, err)
	afterOneFile, errno := d.Getattr("/")
	require.Equal(t, 0, errno)
	assert.EqualValues(t, baseline+int64(dentry.WireSize), afterOneFile.Size)

	_, err = ctx.Mknod("/b.txt", 0644, 0, 0)
	require.Nil(t, err)
	afterTwoFiles, errno := d.Getattr("/")
	require.Equal(t, 0, errno)
	assert.EqualValues(t, baseline+2*int64(dentry.WireSize), afterTwoFiles.Size)

	require.Nil(t, ctx.Unlink("/a.txt"))
	afterUnlink, errno := d.Getattr("/")
	require.Equal(t, 0, errno)
	assert.EqualValues(t, baseline+int64(dentry.WireSize), afterUnlink.Size)
}

func TestWrite_StripeModePlacesBlockOnOwningDiskOnly(t *testing.T) {
	ctx := mountFixture(t, 32, 64, 2, layout.ModeStripe)
	_, err := ctx.Mknod("/s.bin", 0644, 0, 0)
	require.Nil(t, err)

	payload := make([]byte, blockSize)
	copy(payload, []byte("stripezero"))
	_, err = ctx.Write("/s.bin", 0, payload)
	require.Nil(t, err)

	got, err := ctx.Read("/s.bin", 0, blockSize)
	require.Nil(t, err)
	assert.Equal(t, payload, got)

	// The payload sits only on the disk the stripe placement picks for the
	// file's first block, at that disk's local index.
	n, errno := core.NewDispatcher(ctx).Getattr("/s.bin")
	require.Equal(t, 0, errno)
	loc := ctx.DS.Placement.Locate(n.Blocks[0])
	start := ctx.DS.Superblock.DBlocksPtr + loc.Local*blockSize
	for i, disk := range ctx.DS.Disks {
		if i == loc.Disk {
			assert.Equal(t, payload, disk.Data[start:start+blockSize])
		} else {
			assert.NotEqual(t, payload, disk.Data[start:start+blockSize])
		}
	}
}
