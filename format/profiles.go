package format

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/dargueta/raidfs/layout"
	"github.com/gocarina/gocsv"
)

// Profile is one named, pre-tuned combination of RAID mode and
// inode/data-block counts the formatter CLI can apply with a single
// -preset flag instead of spelling out every -r/-i/-b value.
//
// Grounded on disks/disks.go's DiskGeometry, which loads a similar
// CSV-backed catalog of disk-geometry presets via gocsv; this module
// repurposes the same technique for RAID layout presets instead of floppy
// geometries.
type Profile struct {
	Slug          string `csv:"slug"`
	Name          string `csv:"name"`
	ModeValue     int32  `csv:"mode"`
	MinDisks      int64  `csv:"min_disks"`
	DefaultInodes int64  `csv:"default_inodes"`
	DefaultBlocks int64  `csv:"default_blocks"`
}

// Mode returns this profile's RAID mode.
func (p Profile) Mode() layout.Mode {
	return layout.Mode(p.ModeValue)
}

//go:embed profiles.csv
var profilesRawCSV string

var profiles map[string]Profile

func init() {
	profiles = make(map[string]Profile)
	reader := strings.NewReader(profilesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Profile) error {
		if _, exists := profiles[row.Slug]; exists {
			return fmt.Errorf("duplicate RAID profile slug %q", row.Slug)
		}
		profiles[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Preset looks up a named RAID profile by slug.
func Preset(slug string) (Profile, error) {
	p, ok := profiles[slug]
	if !ok {
		return Profile{}, fmt.Errorf("no RAID preset named %q", slug)
	}
	return p, nil
}
