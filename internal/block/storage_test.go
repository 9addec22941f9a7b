package block_test

import (
	"bytes"
	"testing"

	"github.com/go-vdisk/vdisk/internal/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost is an in-memory HostFile backed by a single byte slice.
type fakeHost struct {
	data []byte
}

func newFakeHost(size int) *fakeHost {
	return &fakeHost{data: make([]byte, size)}
}

func (f *fakeHost) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, f.data[off:])
	return n, nil
}

func (f *fakeHost) WriteAt(p []byte, off int64) (int, error) {
	n := copy(f.data[off:], p)
	return n, nil
}

func TestWriteThenReadBlock(t *testing.T) {
	host := newFakeHost(4 * 16)
	storage := block.New(host, 0, 16)

	err := storage.Write([]int32{0, 1}, bytes.Repeat([]byte{0xAB}, 20))
	require.NoError(t, err)

	block0, err := storage.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 16), block0)

	block1, err := storage.ReadBlock(1)
	require.NoError(t, err)
	assert.Equal(t, append(bytes.Repeat([]byte{0xAB}, 4), make([]byte, 12)...), block1)
}

func TestAppendToBlockFillsTail(t *testing.T) {
	host := newFakeHost(16)
	storage := block.New(host, 0, 16)

	n, err := storage.AppendToBlock(0, 10, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 6, n) // only 6 bytes fit before block end

	block0, err := storage.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello "), block0[10:16])
}

func TestAppendToBlockRejectsOutOfRangeOffset(t *testing.T) {
	host := newFakeHost(16)
	storage := block.New(host, 0, 16)

	_, err := storage.AppendToBlock(0, -1, []byte("x"))
	assert.Error(t, err)

	_, err = storage.AppendToBlock(0, 16, []byte("x"))
	assert.Error(t, err)
}

func TestBaseOffsetIsHonored(t *testing.T) {
	host := newFakeHost(32)
	storage := block.New(host, 16, 16)

	require.NoError(t, storage.Write([]int32{0}, []byte("payload-bytes!!!")))
	assert.Equal(t, []byte("payload-bytes!!!"), host.data[16:32])
	assert.Equal(t, make([]byte, 16), host.data[0:16])
}
