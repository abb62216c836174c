// Package testing provides synthetic multi-disk image fixtures for this
// module's test suites: formatted, ready-to-mount disk sets backed by
// in-memory byte slices instead of real files.
//
// Grounded on testing/blockcache.go's CreateRandomImage (crypto/rand-backed
// synthetic image data) and testing/images.go's bytesextra-wrapped stream
// view of a raw image; file_systems/common/blockcache's fetch/flush-backed
// BlockCache fixture has no counterpart here since package diskset reads
// and writes disks as plain mmap'd byte slices rather than through a
// block-cache layer, so there is nothing for that fixture to wrap.
package testing

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/dargueta/raidfs/diskset"
	"github.com/dargueta/raidfs/format"
	"github.com/dargueta/raidfs/layout"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// RandomBytes returns n bytes of random data, failing the test if the
// entropy source errors.
func RandomBytes(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err, "failed to fill %d bytes with random data", n)
	return buf
}

// AsStream wraps a disk's backing bytes as a fixed-size io.ReadWriteSeeker,
// for tests or tools that want a stream view of one disk's image rather
// than direct slice access.
func AsStream(data []byte) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(data)
}

// NewFormattedDiskSet builds numDisks in-memory disks, formats them as a
// single raidfs volume, and mounts the result -- the one-call fixture the
// core tests build on instead of repeating the compute-size/wrap/format/
// mount sequence by hand.
func NewFormattedDiskSet(
	t *testing.T,
	blockSize, numInodes, numDataBlocks, numDisks int64,
	mode layout.Mode,
) *diskset.DiskSet {
	t.Helper()

	sb := layout.Compute(blockSize, numInodes, numDataBlocks, numDisks, 0, mode)
	size := sb.TotalImageSize(blockSize)

	disks := make([]*diskset.Disk, numDisks)
	for i := range disks {
		disks[i] = diskset.WrapBytes("fixture-disk", make([]byte, size))
	}

	require.Nil(t, format.Format(disks, blockSize, numInodes, numDataBlocks, mode))

	ds, err := diskset.Mount(disks, blockSize)
	require.Nil(t, err)
	return ds
}
