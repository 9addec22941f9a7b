// Package presets provides a small catalog of named disk geometries, loaded
// from an embedded CSV, so callers don't have to hand-pick block sizes and
// table sizes for common cases.
package presets

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-vdisk/vdisk"
	"github.com/gocarina/gocsv"
)

//go:embed geometries.csv
var rawCSV string

// Preset names one entry in the catalog: a human-readable description plus
// the geometry it expands to.
type Preset struct {
	Slug        string `csv:"slug"`
	Name        string `csv:"name"`
	BlockSize   int32  `csv:"block_size"`
	FATEntries  int32  `csv:"fat_entries"`
	MaxFiles    int32  `csv:"max_files"`
	Description string `csv:"description"`
}

// Geometry returns the vdisk.Geometry this preset describes.
func (p Preset) Geometry() vdisk.Geometry {
	return vdisk.Geometry{
		BlockSize:  p.BlockSize,
		FATEntries: p.FATEntries,
		MaxFiles:   p.MaxFiles,
	}
}

var catalog map[string]Preset

func init() {
	catalog = make(map[string]Preset)

	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Preset) error {
		if _, exists := catalog[row.Slug]; exists {
			return fmt.Errorf("duplicate preset slug %q", row.Slug)
		}
		catalog[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(fmt.Errorf("presets: failed to load embedded catalog: %w", err))
	}
}

// Get looks up a preset by slug, such as "floppy-1.44mb" or "default-1gb".
func Get(slug string) (Preset, error) {
	preset, ok := catalog[slug]
	if !ok {
		return Preset{}, fmt.Errorf("no preset geometry exists with slug %q", slug)
	}
	return preset, nil
}

// Names returns every known preset slug.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for slug := range catalog {
		names = append(names, slug)
	}
	return names
}
