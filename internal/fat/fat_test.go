package fat_test

import (
	"testing"

	"github.com/go-vdisk/vdisk/internal/fat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateBlocksAscendingFirstFit(t *testing.T) {
	m := fat.New(8)

	blocks, err := m.AllocateBlocks(3)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2}, blocks)
}

func TestAllocateBlocksFailsWhenInsufficient(t *testing.T) {
	m := fat.New(2)

	_, err := m.AllocateBlocks(3)
	assert.Error(t, err)

	// Failed allocation must not have consumed any blocks.
	blocks, err := m.AllocateBlocks(2)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1}, blocks)
}

func TestUpdateFatChainTerminatesWithEOC(t *testing.T) {
	m := fat.New(8)
	blocks, err := m.AllocateBlocks(3)
	require.NoError(t, err)

	m.UpdateFatChain(blocks)
	assert.EqualValues(t, blocks[1], m.NextBlock(blocks[0]))
	assert.EqualValues(t, blocks[2], m.NextBlock(blocks[1]))
	assert.EqualValues(t, fat.EndOfChain, m.NextBlock(blocks[2]))
}

func TestFreeChainReturnsBlocksToPool(t *testing.T) {
	m := fat.New(4)
	blocks, err := m.AllocateBlocks(4)
	require.NoError(t, err)
	m.UpdateFatChain(blocks)

	m.FreeChain(blocks[0])
	assert.Equal(t, 4, m.FreeCount())

	// All blocks should be reusable and FAT entries reset to Free.
	reallocated, err := m.AllocateBlocks(4)
	require.NoError(t, err)
	assert.Equal(t, blocks, reallocated)
}

func TestSerializeLoadRoundTrip(t *testing.T) {
	m := fat.New(4)
	blocks, err := m.AllocateBlocks(2)
	require.NoError(t, err)
	m.UpdateFatChain(blocks)

	raw := m.Serialize()
	loaded, err := fat.Load(raw, 4)
	require.NoError(t, err)

	assert.EqualValues(t, blocks[1], loaded.NextBlock(blocks[0]))
	assert.EqualValues(t, fat.EndOfChain, loaded.NextBlock(blocks[1]))
	assert.Equal(t, 2, loaded.FreeCount())
}

func TestUpdateFatEntrySplicesNewTail(t *testing.T) {
	m := fat.New(4)
	blocks, err := m.AllocateBlocks(2)
	require.NoError(t, err)
	m.UpdateFatChain(blocks)

	newTail, err := m.AllocateBlocks(1)
	require.NoError(t, err)
	m.UpdateFatEntry(blocks[len(blocks)-1], newTail[0])
	m.UpdateFatChain(newTail)

	assert.EqualValues(t, newTail[0], m.NextBlock(blocks[1]))
	assert.EqualValues(t, fat.EndOfChain, m.NextBlock(newTail[0]))
}
