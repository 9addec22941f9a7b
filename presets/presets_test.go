package presets_test

import (
	"testing"

	"github.com/go-vdisk/vdisk"
	"github.com/go-vdisk/vdisk/presets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownPreset(t *testing.T) {
	preset, err := presets.Get("floppy-1.44mb")
	require.NoError(t, err)
	assert.Equal(t, int32(512), preset.Geometry().BlockSize)
	assert.Equal(t, int32(2880), preset.Geometry().FATEntries)
}

func TestGetUnknownPresetFails(t *testing.T) {
	_, err := presets.Get("nonexistent-geometry")
	assert.Error(t, err)
}

func TestNamesIncludesDefault(t *testing.T) {
	assert.Contains(t, presets.Names(), "default-1gb")
}

func TestDefaultPresetMatchesVDiskDefaultGeometry(t *testing.T) {
	preset, err := presets.Get("default-1gb")
	require.NoError(t, err)

	geo := preset.Geometry()
	assert.Equal(t, vdisk.DefaultGeometry(), geo)
	totalDataBytes := int64(geo.BlockSize) * int64(geo.FATEntries)
	assert.Equal(t, int64(1073741824), totalDataBytes)
}
