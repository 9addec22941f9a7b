package format_test

import (
	"testing"

	"github.com/go-vdisk/vdisk/internal/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeParseRoundTrip(t *testing.T) {
	h, err := format.NewHeader(4096, 16384, 1024)
	require.NoError(t, err)

	raw := h.Serialize()
	parsed, err := format.Parse(raw[:])
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestDefaultHeaderOffsets(t *testing.T) {
	h := format.DefaultHeader()

	assert.EqualValues(t, format.HeaderSize, h.FATOffset())
	assert.EqualValues(t, format.HeaderSize+format.DefaultFATEntries*4, h.DirectoryOffset())
	assert.EqualValues(
		t,
		format.HeaderSize+format.DefaultFATEntries*4+format.DefaultMaxFiles*format.DirentSize,
		h.DataOffset(),
	)
}

func TestParseRejectsShortBuffer(t *testing.T) {
	_, err := format.Parse([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestParseRejectsBadGeometry(t *testing.T) {
	h := format.Header{BlockSize: 0, FATEntries: 10, MaxFiles: 10}
	raw := h.Serialize()
	_, err := format.Parse(raw[:])
	assert.Error(t, err)
}

func TestReservedFieldAlwaysZero(t *testing.T) {
	h, err := format.NewHeader(512, 100, 10)
	require.NoError(t, err)
	raw := h.Serialize()
	assert.Equal(t, []byte{0, 0, 0, 0}, raw[12:16])
}
