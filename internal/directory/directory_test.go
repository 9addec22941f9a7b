package directory_test

import (
	"testing"

	"github.com/go-vdisk/vdisk/internal/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFreeEntryLowestIndex(t *testing.T) {
	m := directory.New(4)
	require.NoError(t, m.UpdateEntry(0, "a.txt", -1, 0))

	slot, ok := m.FindFreeEntry()
	require.True(t, ok)
	assert.EqualValues(t, 1, slot)
}

func TestUpdateEntryAndGetEntry(t *testing.T) {
	m := directory.New(4)
	require.NoError(t, m.UpdateEntry(2, "report.txt", 5, 123))

	entry, ok := m.GetEntry("report.txt")
	require.True(t, ok)
	assert.Equal(t, directory.Entry{Name: "report.txt", StartBlock: 5, FileSize: 123}, entry)

	slot, ok := m.GetEntryIndex("report.txt")
	require.True(t, ok)
	assert.EqualValues(t, 2, slot)
}

func TestMarkEntryDeletedRemovesFromIndex(t *testing.T) {
	m := directory.New(4)
	require.NoError(t, m.UpdateEntry(0, "a.txt", -1, 0))

	require.NoError(t, m.MarkEntryDeleted("a.txt"))

	_, ok := m.GetEntry("a.txt")
	assert.False(t, ok)

	slot, ok := m.FindFreeEntry()
	require.True(t, ok)
	assert.EqualValues(t, 0, slot, "tombstoned slot must be reusable")
}

func TestUpdateFileSizeLeavesNameAndStartBlockAlone(t *testing.T) {
	m := directory.New(4)
	require.NoError(t, m.UpdateEntry(1, "grown.bin", 3, 10))

	require.NoError(t, m.UpdateFileSize("grown.bin", 4096))

	entry, ok := m.GetEntry("grown.bin")
	require.True(t, ok)
	assert.Equal(t, int32(3), entry.StartBlock)
	assert.Equal(t, int32(4096), entry.FileSize)
}

func TestSerializeLoadRoundTrip(t *testing.T) {
	m := directory.New(4)
	require.NoError(t, m.UpdateEntry(0, "keep.txt", 1, 50))
	require.NoError(t, m.UpdateEntry(1, "gone.txt", 2, 10))
	require.NoError(t, m.MarkEntryDeleted("gone.txt"))

	raw := m.Serialize()
	loaded, err := directory.Load(raw, 4)
	require.NoError(t, err)

	entry, ok := loaded.GetEntry("keep.txt")
	require.True(t, ok)
	assert.Equal(t, int32(50), entry.FileSize)

	_, ok = loaded.GetEntry("gone.txt")
	assert.False(t, ok, "tombstoned entry must not reappear as live on load")

	slot, ok := loaded.FindFreeEntry()
	require.True(t, ok)
	assert.EqualValues(t, 1, slot)
}

func TestTrailingNulOnlyStripped(t *testing.T) {
	m := directory.New(2)
	require.NoError(t, m.UpdateEntry(0, "x ", -1, 0))

	raw := m.Serialize()
	loaded, err := directory.Load(raw, 2)
	require.NoError(t, err)

	entry, ok := loaded.GetEntry("x ")
	require.True(t, ok)
	assert.Equal(t, "x ", entry.Name)
}

func TestEncodedNameFits(t *testing.T) {
	assert.True(t, directory.EncodedNameFits("123456789012345678901234")) // 24 bytes
	assert.False(t, directory.EncodedNameFits("1234567890123456789012345"))
}

func TestUpdateEntryRejectsOverlongName(t *testing.T) {
	m := directory.New(1)
	err := m.UpdateEntry(0, "1234567890123456789012345", -1, 0)
	assert.Error(t, err)
}
