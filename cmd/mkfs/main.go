// Command mkfs formats one or more backing files as a raidfs volume.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dargueta/raidfs/diskset"
	"github.com/dargueta/raidfs/format"
	"github.com/dargueta/raidfs/layout"
	"github.com/urfave/cli/v2"
)

// ioFailure marks an error as an I/O failure rather than a bad argument, so
// main can tell the two apart when choosing an exit status.
type ioFailure struct{ err error }

func (e *ioFailure) Error() string { return e.err.Error() }
func (e *ioFailure) Unwrap() error { return e.err }

func wrapIOFailure(err error) error {
	if err == nil {
		return nil
	}
	return &ioFailure{err: err}
}

func main() {
	app := cli.App{
		Name:  "mkfs.raidfs",
		Usage: "Format backing files as a multi-disk raidfs volume",
		Commands: []*cli.Command{
			{
				Name:   "format",
				Usage:  "Create a fresh raidfs volume across two or more disk images",
				Action: runFormat,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "r",
						Usage: "RAID mode: 0 (stripe), 1 (mirror), 1v (verified mirror)",
					},
					&cli.StringFlag{
						Name:  "preset",
						Usage: "named RAID profile to use instead of -r/-i/-b",
					},
					&cli.StringSliceFlag{
						Name:     "d",
						Usage:    "path to a backing disk image; repeat for every disk (at least 2 required)",
						Required: true,
					},
					&cli.Int64Flag{
						Name:  "i",
						Usage: "number of inodes (rounded up to a multiple of 32)",
					},
					&cli.Int64Flag{
						Name:  "b",
						Usage: "number of data blocks (rounded up to a multiple of 32)",
					},
					&cli.Int64Flag{
						Name:  "block-size",
						Value: 4096,
						Usage: "block size in bytes",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "mkfs.raidfs: %s\n", err.Error())
		var ioErr *ioFailure
		if errors.As(err, &ioErr) {
			os.Exit(-1)
		}
		os.Exit(1)
	}
}

func runFormat(c *cli.Context) error {
	blockSize := c.Int64("block-size")
	diskPaths := c.StringSlice("d")
	if len(diskPaths) < 2 {
		return fmt.Errorf("at least 2 -d flags are required, got %d", len(diskPaths))
	}

	mode, numInodes, numBlocks, err := resolveLayoutArgs(c)
	if err != nil {
		return err
	}

	sb := layout.Compute(blockSize, numInodes, numBlocks, int64(len(diskPaths)), 0, mode)
	imageSize := sb.TotalImageSize(blockSize)

	disks := make([]*diskset.Disk, len(diskPaths))
	for i, path := range diskPaths {
		if err := ensureFileSize(path, imageSize); err != nil {
			return wrapIOFailure(fmt.Errorf("disk %q: %w", path, err))
		}
		d, derr := diskset.MapFile(path, imageSize)
		if derr != nil {
			return wrapIOFailure(fmt.Errorf("disk %q: %s", path, derr.Error()))
		}
		disks[i] = d
	}

	if ferr := format.Format(disks, blockSize, numInodes, numBlocks, mode); ferr != nil {
		return wrapIOFailure(fmt.Errorf("format failed: %s", ferr.Error()))
	}

	for _, d := range disks {
		if cerr := d.Close(); cerr != nil {
			return wrapIOFailure(fmt.Errorf("closing %q: %s", d.Path, cerr.Error()))
		}
	}

	fmt.Printf(
		"formatted %d disks: %d inodes, %d data blocks, mode %s\n",
		len(disks), sb.NumInodes, sb.NumDataBlocks, mode)
	return nil
}

// resolveLayoutArgs applies -preset first, then lets -r/-i/-b override
// individual fields. Errors from here are argument errors, never I/O
// failures.
func resolveLayoutArgs(c *cli.Context) (layout.Mode, int64, int64, error) {
	var mode layout.Mode
	var numInodes, numBlocks int64

	if slug := c.String("preset"); slug != "" {
		p, err := format.Preset(slug)
		if err != nil {
			return 0, 0, 0, err
		}
		mode = p.Mode()
		numInodes = p.DefaultInodes
		numBlocks = p.DefaultBlocks
	}

	if token := c.String("r"); token != "" {
		m, err := layout.ParseMode(token)
		if err != nil {
			return 0, 0, 0, err
		}
		mode = m
	}
	if v := c.Int64("i"); v != 0 {
		numInodes = v
	}
	if v := c.Int64("b"); v != 0 {
		numBlocks = v
	}

	if numInodes == 0 || numBlocks == 0 {
		return 0, 0, 0, fmt.Errorf("must specify -i and -b, or -preset")
	}
	return mode, numInodes, numBlocks, nil
}

// ensureFileSize creates path at exactly size bytes if it doesn't exist
// yet. An existing file smaller than size is rejected rather than grown --
// a backing file a caller already populated is never silently resized.
func ensureFileSize(path string, size int64) error {
	_, statErr := os.Stat(path)
	existed := !os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !existed && info.Size() == 0 {
		return f.Truncate(size)
	}
	if info.Size() < size {
		return fmt.Errorf("backing file is %d bytes, need at least %d", info.Size(), size)
	}
	return nil
}
