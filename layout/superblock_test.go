package layout_test

import (
	"testing"

	"github.com/dargueta/raidfs/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_RoundsCountsUpToMultipleOf32(t *testing.T) {
	sb := layout.Compute(512, 10, 50, 2, 0, layout.ModeMirror)
	assert.EqualValues(t, 32, sb.NumInodes)
	assert.EqualValues(t, 64, sb.NumDataBlocks)
}

func TestCompute_RegionOffsetOrdering(t *testing.T) {
	sb := layout.Compute(512, 32, 32, 2, 0, layout.ModeStripe)

	assert.EqualValues(t, layout.SuperblockSize, sb.IBitmapPtr)
	assert.Greater(t, sb.DBitmapPtr, sb.IBitmapPtr)
	assert.GreaterOrEqual(t, sb.IBlocksPtr, sb.DBitmapPtr)
	assert.Zero(t, sb.IBlocksPtr%512, "inode region must be block-aligned")
	assert.EqualValues(t, sb.IBlocksPtr+sb.NumInodes*512, sb.DBlocksPtr)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := layout.Compute(512, 64, 128, 3, 1, layout.ModeVerifiedMirror)
	buf := make([]byte, layout.SuperblockSize)

	require.Nil(t, original.Encode(buf))

	decoded, err := layout.Decode(buf)
	require.Nil(t, err)
	assert.Equal(t, original, decoded)
}

func TestSameLayout_IgnoresDiskIndex(t *testing.T) {
	a := layout.Compute(512, 32, 32, 2, 0, layout.ModeMirror)
	b := layout.Compute(512, 32, 32, 2, 1, layout.ModeMirror)

	assert.True(t, a.SameLayout(b))
	assert.NotEqual(t, a, b)
}

func TestParseMode(t *testing.T) {
	stripe, err := layout.ParseMode("0")
	require.Nil(t, err)
	assert.Equal(t, layout.ModeStripe, stripe)

	mirror, err := layout.ParseMode("1")
	require.Nil(t, err)
	assert.Equal(t, layout.ModeMirror, mirror)

	verified, err := layout.ParseMode("1v")
	require.Nil(t, err)
	assert.Equal(t, layout.ModeVerifiedMirror, verified)

	_, err = layout.ParseMode("bogus")
	require.NotNil(t, err)
	assert.Equal(t, -22, err.Errno())
}
