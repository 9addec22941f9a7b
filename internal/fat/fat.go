// Package fat maintains the on-disk File Allocation Table chains and an
// in-memory free-block bitmap kept coherent with them.
//
// FAT entry values: 0 means the block is free, -1 marks the end of a chain,
// and any other non-negative value n means "the next block is n". The
// table is held entirely in memory between loads and is only serialized
// back to the host file on an explicit Serialize/flush, matching the
// buffered-until-close durability model of the facade.
package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/boljen/go-bitmap"
)

const (
	// Free marks a FAT entry as unallocated.
	Free int32 = 0
	// EndOfChain terminates a chain.
	EndOfChain int32 = -1
)

// Manager owns the in-memory FAT table and free-block bitmap for a disk
// with a fixed number of entries (== number of data blocks).
type Manager struct {
	table   []int32
	free    bitmap.Bitmap
	entries int32
}

// New creates a Manager for a fresh disk: every block is free.
func New(entries int32) *Manager {
	return &Manager{
		table:   make([]int32, entries),
		free:    bitmap.New(int(entries)),
		entries: entries,
	}
}

// Load reconstructs a Manager from the serialized on-disk FAT region. The
// free bitmap is rebuilt by treating every zero-valued entry as free, per
// the reference free-list-rebuild-on-load behavior: this is only correct
// if the on-disk invariants held when the disk was last closed.
func Load(data []byte, entries int32) (*Manager, error) {
	if int32(len(data)) < entries*4 {
		return nil, fmt.Errorf(
			"FAT region too short: need %d bytes, got %d", entries*4, len(data))
	}

	m := &Manager{
		table:   make([]int32, entries),
		free:    bitmap.New(int(entries)),
		entries: entries,
	}
	for i := int32(0); i < entries; i++ {
		value := int32(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
		m.table[i] = value
		m.free.Set(int(i), value != Free)
	}
	return m, nil
}

// AllocateBlocks returns n distinct free block indices in ascending order,
// the order the caller should use when chaining them together. No bitmap
// or table mutation happens unless n free blocks are actually found, so a
// failed allocation never needs to be rolled back.
func (m *Manager) AllocateBlocks(n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}

	found := make([]int32, 0, n)
	for i := int32(0); i < m.entries && len(found) < n; i++ {
		if !m.free.Get(int(i)) {
			found = append(found, i)
		}
	}

	if len(found) < n {
		return nil, fmt.Errorf(
			"need %d free blocks, only %d available", n, len(found))
	}

	for _, blk := range found {
		m.free.Set(int(blk), true)
	}
	return found, nil
}

// UpdateFatChain links blocks in order: each entry points to the next, and
// the last entry is terminated with EndOfChain.
func (m *Manager) UpdateFatChain(blocks []int32) {
	for i := 0; i < len(blocks)-1; i++ {
		m.table[blocks[i]] = blocks[i+1]
	}
	if len(blocks) > 0 {
		m.table[blocks[len(blocks)-1]] = EndOfChain
	}
}

// UpdateFatEntry overwrites a single FAT slot, used to splice a newly
// allocated tail onto the end of an existing chain.
func (m *Manager) UpdateFatEntry(block, next int32) {
	m.table[block] = next
}

// NextBlock returns the raw FAT value stored at block: a positive next
// block index, EndOfChain, or Free.
func (m *Manager) NextBlock(block int32) int32 {
	return m.table[block]
}

// FreeChain walks the chain starting at startBlock, clearing each visited
// block's FAT entry to Free and marking it free in the bitmap. Traversal
// stops at EndOfChain or as soon as the current index leaves [0, entries).
func (m *Manager) FreeChain(startBlock int32) {
	current := startBlock
	for current >= 0 && current < m.entries {
		next := m.table[current]
		m.table[current] = Free
		m.free.Set(int(current), false)
		current = next
	}
}

// Serialize encodes the full FAT table as it should appear on disk.
func (m *Manager) Serialize() []byte {
	buf := make([]byte, m.entries*4)
	for i, value := range m.table {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], uint32(value))
	}
	return buf
}

// FreeCount returns the number of currently unallocated blocks.
func (m *Manager) FreeCount() int {
	count := 0
	for i := int32(0); i < m.entries; i++ {
		if !m.free.Get(int(i)) {
			count++
		}
	}
	return count
}
