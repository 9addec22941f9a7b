// Package directory persists the flat, fixed-size directory table: one
// 32-byte entry per slot, a name to the first 24 bytes with a state marker
// doubling as the first name byte, and an in-memory name->slot index kept
// in sync with every mutation.
package directory

import (
	"encoding/binary"
	"fmt"
)

// EntrySize is the fixed size, in bytes, of one directory entry.
const EntrySize = 32

const nameFieldSize = 24

const (
	stateUnused    byte = 0x00
	stateTombstone byte = 0xE5
)

// Entry is the logical, decoded form of a live directory slot.
type Entry struct {
	Name       string
	StartBlock int32
	FileSize   int32
}

// Manager owns the in-memory directory table: the raw 32-byte encoding of
// every slot (so tombstoning can leave the rest of a dead slot's bytes
// undisturbed, as the format requires), the decoded live entries, and the
// name->slot index.
type Manager struct {
	maxFiles   int32
	raw        [][EntrySize]byte
	entries    []*Entry
	nameToSlot map[string]int32
}

// New creates a Manager for a fresh disk: every slot unused.
func New(maxFiles int32) *Manager {
	return &Manager{
		maxFiles:   maxFiles,
		raw:        make([][EntrySize]byte, maxFiles),
		entries:    make([]*Entry, maxFiles),
		nameToSlot: make(map[string]int32),
	}
}

// Load reconstructs a Manager from the serialized on-disk directory region.
func Load(data []byte, maxFiles int32) (*Manager, error) {
	if int32(len(data)) < maxFiles*EntrySize {
		return nil, fmt.Errorf(
			"directory region too short: need %d bytes, got %d",
			maxFiles*EntrySize, len(data))
	}

	m := New(maxFiles)
	for i := int32(0); i < maxFiles; i++ {
		copy(m.raw[i][:], data[i*EntrySize:i*EntrySize+EntrySize])

		state := m.raw[i][0]
		if state == stateUnused || state == stateTombstone {
			continue
		}

		entry := decodeEntry(&m.raw[i])
		m.entries[i] = &entry
		m.nameToSlot[entry.Name] = i
	}
	return m, nil
}

func encodeEntry(buf *[EntrySize]byte, name string, startBlock, fileSize int32) error {
	nameBytes := []byte(name)
	if len(nameBytes) > nameFieldSize {
		return fmt.Errorf("encoded name %q exceeds %d bytes", name, nameFieldSize)
	}

	for i := range buf {
		buf[i] = 0
	}
	copy(buf[0:nameFieldSize], nameBytes)
	binary.LittleEndian.PutUint32(buf[nameFieldSize:nameFieldSize+4], uint32(startBlock))
	binary.LittleEndian.PutUint32(buf[nameFieldSize+4:nameFieldSize+8], uint32(fileSize))
	return nil
}

func decodeEntry(buf *[EntrySize]byte) Entry {
	name := trimTrailingNul(buf[0:nameFieldSize])
	startBlock := int32(binary.LittleEndian.Uint32(buf[nameFieldSize : nameFieldSize+4]))
	fileSize := int32(binary.LittleEndian.Uint32(buf[nameFieldSize+4 : nameFieldSize+8]))
	return Entry{Name: name, StartBlock: startBlock, FileSize: fileSize}
}

func trimTrailingNul(raw []byte) string {
	end := len(raw)
	for end > 0 && raw[end-1] == 0x00 {
		end--
	}
	return string(raw[:end])
}

// FindFreeEntry returns the lowest-index slot that is unused or tombstoned.
// This is the one O(maxFiles) operation in the package; acceptable given
// maxFiles is bounded in the tens of thousands.
func (m *Manager) FindFreeEntry() (int32, bool) {
	for i := int32(0); i < m.maxFiles; i++ {
		if m.entries[i] == nil {
			return i, true
		}
	}
	return 0, false
}

// UpdateEntry writes a live entry into slot i, refreshing both the raw
// on-disk encoding and the in-memory index.
func (m *Manager) UpdateEntry(i int32, name string, startBlock, fileSize int32) error {
	if err := encodeEntry(&m.raw[i], name, startBlock, fileSize); err != nil {
		return err
	}
	m.entries[i] = &Entry{Name: name, StartBlock: startBlock, FileSize: fileSize}
	m.nameToSlot[name] = i
	return nil
}

// GetEntry returns the live entry named name, if any.
func (m *Manager) GetEntry(name string) (Entry, bool) {
	slot, ok := m.nameToSlot[name]
	if !ok {
		return Entry{}, false
	}
	return *m.entries[slot], true
}

// GetEntryIndex returns the slot index of the live entry named name.
func (m *Manager) GetEntryIndex(name string) (int32, bool) {
	slot, ok := m.nameToSlot[name]
	return slot, ok
}

// MarkEntryDeleted tombstones the slot for name: only the state byte is
// overwritten on disk, the rest of the raw bytes are left undisturbed, the
// in-memory slot is cleared, and the name is dropped from the index.
func (m *Manager) MarkEntryDeleted(name string) error {
	slot, ok := m.nameToSlot[name]
	if !ok {
		return fmt.Errorf("no live entry named %q", name)
	}

	m.raw[slot][0] = stateTombstone
	m.entries[slot] = nil
	delete(m.nameToSlot, name)
	return nil
}

// UpdateFileSize overwrites only the 4-byte size field of name's slot.
func (m *Manager) UpdateFileSize(name string, newSize int32) error {
	slot, ok := m.nameToSlot[name]
	if !ok {
		return fmt.Errorf("no live entry named %q", name)
	}

	binary.LittleEndian.PutUint32(m.raw[slot][nameFieldSize+4:nameFieldSize+8], uint32(newSize))
	m.entries[slot].FileSize = newSize
	return nil
}

// Serialize encodes the full directory table as it should appear on disk.
func (m *Manager) Serialize() []byte {
	buf := make([]byte, int(m.maxFiles)*EntrySize)
	for i, slot := range m.raw {
		copy(buf[i*EntrySize:(i+1)*EntrySize], slot[:])
	}
	return buf
}

// Names returns the names of every live entry, in slot order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.nameToSlot))
	for _, entry := range m.entries {
		if entry != nil {
			names = append(names, entry.Name)
		}
	}
	return names
}

// EncodedNameFits reports whether name's UTF-8 encoding fits in the 24-byte
// name field.
func EncodedNameFits(name string) bool {
	return len(name) <= nameFieldSize
}
