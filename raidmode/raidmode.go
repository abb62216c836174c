// Package raidmode implements RAID placement logic as a tagged enumeration
// backed by a small interface ("trait") with Locate/Replicas operations,
// rather than a switch scattered through the I/O engine.
package raidmode

import (
	"bytes"
	"fmt"

	"github.com/dargueta/raidfs/layout"
)

// Location identifies a single physical copy of a logical data block: which
// disk holds it, and at what local (per-disk) block index.
type Location struct {
	Disk  int
	Local int64
}

// Placement maps a logical data-block index to the physical disk(s) that
// hold it, per the chosen RAID mode.
type Placement interface {
	// Mode returns the RAID mode this placement implements.
	Mode() layout.Mode

	// Locate returns the single authoritative location to read from for
	// logical block b.
	Locate(b int64) Location

	// Replicas returns every location that must be kept in sync on a write
	// to logical block b. For stripe mode this is a single location
	// (identical to Locate); for mirror modes it is one per disk.
	Replicas(b int64) []Location
}

// New constructs the Placement implementation for the given mode and disk
// count. Directory and inode blocks never consult this interface -- they
// are always mirrored regardless of mode -- that path is handled directly
// by diskset's ReadDirectoryBlock/WriteDirectoryBlock instead.
func New(mode layout.Mode, numDisks int) (Placement, error) {
	if numDisks <= 0 {
		return nil, fmt.Errorf("numDisks must be positive, got %d", numDisks)
	}

	switch mode {
	case layout.ModeStripe:
		return stripePlacement{numDisks: numDisks}, nil
	case layout.ModeMirror:
		return mirrorPlacement{numDisks: numDisks}, nil
	case layout.ModeVerifiedMirror:
		return verifiedMirrorPlacement{mirrorPlacement{numDisks: numDisks}}, nil
	default:
		return nil, fmt.Errorf("unrecognized raid mode %d", mode)
	}
}

// -----------------------------------------------------------------------------
// Stripe mode (0): one copy at disk b mod numDisks, local index b / numDisks.

type stripePlacement struct {
	numDisks int
}

func (p stripePlacement) Mode() layout.Mode { return layout.ModeStripe }

func (p stripePlacement) Locate(b int64) Location {
	n := int64(p.numDisks)
	return Location{Disk: int(b % n), Local: b / n}
}

func (p stripePlacement) Replicas(b int64) []Location {
	return []Location{p.Locate(b)}
}

// -----------------------------------------------------------------------------
// Mirror mode (1): numDisks copies, each at its disk's local index b.

type mirrorPlacement struct {
	numDisks int
}

func (p mirrorPlacement) Mode() layout.Mode { return layout.ModeMirror }

func (p mirrorPlacement) Locate(b int64) Location {
	return Location{Disk: 0, Local: b}
}

func (p mirrorPlacement) Replicas(b int64) []Location {
	out := make([]Location, p.numDisks)
	for i := range out {
		out[i] = Location{Disk: i, Local: b}
	}
	return out
}

// -----------------------------------------------------------------------------
// Verified mirror (2): identical placement to mirror. This module adds
// read-majority verification as a conformant extension without
// changing on-disk layout (open question decision recorded in DESIGN.md).

type verifiedMirrorPlacement struct {
	mirrorPlacement
}

func (p verifiedMirrorPlacement) Mode() layout.Mode { return layout.ModeVerifiedMirror }

// MajorityVote picks the byte slice that appears most often among copies,
// the read-time verification verifiedMirrorPlacement adds over plain
// mirroring. It returns ok=false if no value has a strict majority (more
// copies agree than all other copies combined).
func MajorityVote(copies [][]byte) (winner []byte, ok bool) {
	type group struct {
		value []byte
		count int
	}
	var groups []group

	for _, c := range copies {
		matched := false
		for i := range groups {
			if bytes.Equal(groups[i].value, c) {
				groups[i].count++
				matched = true
				break
			}
		}
		if !matched {
			groups = append(groups, group{value: c, count: 1})
		}
	}

	best := group{}
	for _, g := range groups {
		if g.count > best.count {
			best = g
		}
	}
	return best.value, best.count*2 > len(copies)
}
