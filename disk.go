// Package vdisk implements a self-contained, single-file virtual disk: a
// FAT-style flat namespace of files stored as fixed-size blocks inside one
// ordinary host file, with create/append/read/delete and a reentrant-free
// reader/writer lock serializing mutations.
package vdisk

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-vdisk/vdisk/internal/block"
	"github.com/go-vdisk/vdisk/internal/directory"
	"github.com/go-vdisk/vdisk/internal/fat"
	"github.com/go-vdisk/vdisk/internal/format"
	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"
)

// Disk is the public facade over a virtual disk host file. A Disk is safe
// for concurrent use: readers may run in parallel with each other, but
// every mutation is exclusive against all other operations.
type Disk struct {
	mu     sync.RWMutex
	host   HostFile
	header format.Header

	storage *block.Storage
	fatMgr  *fat.Manager
	dirMgr  *directory.Manager
}

// Create creates a new host file at path, replacing any existing file
// there. If geometry is omitted, DefaultGeometry is used.
func Create(path string, geometry ...Geometry) (*Disk, error) {
	// create() unconditionally replaces any existing file at path.
	_ = os.Remove(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, ErrIO.Wrap(err)
	}

	disk, err := CreateOnHost(f, geometry...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return disk, nil
}

// CreateOnHost builds a fresh disk directly on top of an already-open
// HostFile, rather than opening a path itself. This is the entry point
// vdisktest uses to wire a MemoryHost into a Disk in tests; real callers
// normally go through Create instead.
func CreateOnHost(host HostFile, geometry ...Geometry) (*Disk, error) {
	geo := DefaultGeometry()
	if len(geometry) > 0 {
		geo = geometry[0]
	}

	header, err := format.NewHeader(geo.BlockSize, geo.FATEntries, geo.MaxFiles)
	if err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}

	return newFromHost(host, header, true)
}

// LoadFromFile opens an existing host file and reconstructs its FAT and
// directory tables in memory. It fails with ErrFileNotFound if path does
// not exist.
func LoadFromFile(path string) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound.Wrap(err)
		}
		return nil, ErrIO.Wrap(err)
	}

	disk, err := LoadFromHost(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return disk, nil
}

// LoadFromHost reconstructs a Disk's FAT and directory tables from an
// already-open HostFile holding a previously created disk image.
func LoadFromHost(host HostFile) (*Disk, error) {
	headerBuf := make([]byte, format.HeaderSize)
	if _, err := host.ReadAt(headerBuf, 0); err != nil {
		return nil, ErrCorruptDisk.Wrap(err)
	}

	header, err := format.Parse(headerBuf)
	if err != nil {
		return nil, ErrCorruptDisk.Wrap(err)
	}

	return newFromHost(host, header, false)
}

// newFromHost builds a Disk around an already-opened host file. When fresh
// is true, the FAT region is zero-filled on disk and the FAT/directory
// managers start empty; otherwise both tables are read in full from the
// host file.
func newFromHost(f HostFile, header format.Header, fresh bool) (*Disk, error) {
	disk := &Disk{
		host:    f,
		header:  header,
		storage: block.New(f, header.DataOffset(), header.BlockSize),
	}

	if fresh {
		headerBytes := header.Serialize()
		if _, err := f.WriteAt(headerBytes[:], 0); err != nil {
			return nil, ErrIO.Wrap(err)
		}
		// Zero-fill the FAT region and implicitly zero the directory
		// region by growing the file to the start of the data region;
		// data blocks themselves are left sparse until first written.
		if err := f.Truncate(header.DataOffset()); err != nil {
			return nil, ErrIO.Wrap(err)
		}

		disk.fatMgr = fat.New(header.FATEntries)
		disk.dirMgr = directory.New(header.MaxFiles)
		return disk, nil
	}

	fatBuf := make([]byte, header.FATEntries*4)
	if _, err := f.ReadAt(fatBuf, header.FATOffset()); err != nil {
		return nil, ErrCorruptDisk.Wrap(err)
	}
	fatMgr, err := fat.Load(fatBuf, header.FATEntries)
	if err != nil {
		return nil, ErrCorruptDisk.Wrap(err)
	}

	dirBuf := make([]byte, int64(header.MaxFiles)*format.DirentSize)
	if _, err := f.ReadAt(dirBuf, header.DirectoryOffset()); err != nil {
		return nil, ErrCorruptDisk.Wrap(err)
	}
	dirMgr, err := directory.Load(dirBuf, header.MaxFiles)
	if err != nil {
		return nil, ErrCorruptDisk.Wrap(err)
	}

	disk.fatMgr = fatMgr
	disk.dirMgr = dirMgr
	return disk, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidFileName.WithMessage("name is blank")
	}
	if !directory.EncodedNameFits(name) {
		return ErrInvalidFileName.WithMessage(
			fmt.Sprintf("name %q exceeds 24 UTF-8 bytes", name))
	}
	return nil
}

// CreateFile creates a zero-byte file named name, with startBlock == -1. If
// a file by that name already exists, it is deleted first (see
// CreateFileWithData for the overwrite semantics this shares).
func (d *Disk) CreateFile(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createLocked(name, nil)
}

// CreateFileWithData creates a file named name containing data. If a file
// by that name already exists, it is first deleted (its blocks freed and
// its directory slot tombstoned) and then recreated; the new entry may or
// may not land in the same directory slot as the old one.
//
// If allocation fails after the existing file was deleted, the old file is
// not restored: overwrite is delete-then-create, not an atomic swap.
func (d *Disk) CreateFileWithData(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createLocked(name, data)
}

func (d *Disk) createLocked(name string, data []byte) error {
	if _, ok := d.dirMgr.GetEntry(name); ok {
		if err := d.deleteLocked(name); err != nil {
			return err
		}
	}

	blockCount := blocksNeeded(int32(len(data)), d.header.BlockSize)
	startBlock := int32(-1)

	if blockCount > 0 {
		blocks, err := d.fatMgr.AllocateBlocks(blockCount)
		if err != nil {
			return ErrInsufficientSpace.Wrap(err)
		}
		if err := d.storage.Write(blocks, data); err != nil {
			return ErrIO.Wrap(err)
		}
		d.fatMgr.UpdateFatChain(blocks)
		startBlock = blocks[0]
	}

	slot, ok := d.dirMgr.FindFreeEntry()
	if !ok {
		return ErrDirectoryFull
	}
	return d.dirMgr.UpdateEntry(slot, name, startBlock, int32(len(data)))
}

func blocksNeeded(size, blockSize int32) int {
	if size <= 0 {
		return 0
	}
	return int((size + blockSize - 1) / blockSize)
}

// AppendFile extends the named file by the bytes in data. Appending zero
// bytes to an existing file is a no-op beyond confirming the file exists.
//
// If a second-stage allocation fails partway through a multi-block append,
// bytes already written into the tail of the file's last existing block are
// not rolled back, and the file's logical size is not updated; those bytes
// are invisible to ReadFile but persist on disk until the block is reused.
func (d *Disk) AppendFile(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.dirMgr.GetEntry(name)
	if !ok {
		return ErrFileNotFound.WithMessage(name)
	}
	if len(data) == 0 {
		return nil
	}

	startBlock := entry.StartBlock
	var lastBlock int32
	var offset, tail int32

	if startBlock == -1 {
		blocks, err := d.fatMgr.AllocateBlocks(1)
		if err != nil {
			return ErrInsufficientSpace.Wrap(err)
		}
		d.fatMgr.UpdateFatChain(blocks)
		startBlock = blocks[0]
		lastBlock = startBlock
		offset = 0
		tail = d.header.BlockSize

		slot, _ := d.dirMgr.GetEntryIndex(name)
		if err := d.dirMgr.UpdateEntry(slot, name, startBlock, entry.FileSize); err != nil {
			return err
		}
	} else {
		lastBlock = d.findLastBlock(startBlock)
		offset = entry.FileSize % d.header.BlockSize
		// When FileSize is an exact, nonzero multiple of BlockSize, the
		// last block is already completely full: there is no tail to
		// fill, not a full block's worth as the naive subtraction would
		// suggest.
		tail = d.header.BlockSize - offset
		if offset == 0 && entry.FileSize > 0 {
			tail = 0
		}
	}

	written := 0
	if tail > 0 {
		n, err := d.storage.AppendToBlock(lastBlock, offset, data)
		if err != nil {
			return ErrIO.Wrap(err)
		}
		written = n
	}

	remaining := data[written:]
	if len(remaining) > 0 {
		newBlockCount := blocksNeeded(int32(len(remaining)), d.header.BlockSize)
		newBlocks, err := d.fatMgr.AllocateBlocks(newBlockCount)
		if err != nil {
			// Tail bytes above are already on disk and are not rolled
			// back; fileSize is left unchanged so they stay invisible.
			return ErrInsufficientSpace.Wrap(err)
		}

		d.fatMgr.UpdateFatEntry(lastBlock, newBlocks[0])
		d.fatMgr.UpdateFatChain(newBlocks)
		if err := d.storage.Write(newBlocks, remaining); err != nil {
			return ErrIO.Wrap(err)
		}
	}

	return d.dirMgr.UpdateFileSize(name, entry.FileSize+int32(len(data)))
}

func (d *Disk) findLastBlock(start int32) int32 {
	current := start
	for {
		next := d.fatMgr.NextBlock(current)
		if next == fat.EndOfChain {
			return current
		}
		current = next
	}
}

// ReadFile returns the entire contents of the named file, exactly
// fileSize bytes long.
func (d *Disk) ReadFile(name string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.dirMgr.GetEntry(name)
	if !ok {
		return nil, ErrFileNotFound.WithMessage(name)
	}
	if entry.FileSize == 0 {
		return []byte{}, nil
	}

	buffer := make([]byte, entry.FileSize)
	writer := bytewriter.New(buffer)

	remaining := entry.FileSize
	currentBlock := entry.StartBlock
	for remaining > 0 {
		blockData, err := d.storage.ReadBlock(currentBlock)
		if err != nil {
			return nil, ErrIO.Wrap(err)
		}

		n := int32(len(blockData))
		if n > remaining {
			n = remaining
		}
		if _, err := writer.Write(blockData[:n]); err != nil {
			return nil, ErrIO.Wrap(err)
		}

		remaining -= n
		if remaining > 0 {
			currentBlock = d.fatMgr.NextBlock(currentBlock)
		}
	}

	return buffer, nil
}

// DeleteFile frees the named file's blocks and tombstones its directory
// entry. It fails with ErrFileNotFound if the file doesn't exist.
func (d *Disk) DeleteFile(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.dirMgr.GetEntry(name); !ok {
		return ErrFileNotFound.WithMessage(name)
	}
	return d.deleteLocked(name)
}

// deleteLocked assumes the write lock is already held and that the entry
// named name is known to be live.
func (d *Disk) deleteLocked(name string) error {
	entry, _ := d.dirMgr.GetEntry(name)
	if entry.StartBlock != -1 {
		d.fatMgr.FreeChain(entry.StartBlock)
	}
	return d.dirMgr.MarkEntryDeleted(name)
}

// Stat returns the size and start block of the named file without reading
// its contents. exists is false if no live entry has that name.
func (d *Disk) Stat(name string) (size int32, startBlock int32, exists bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.dirMgr.GetEntry(name)
	if !ok {
		return 0, 0, false
	}
	return entry.FileSize, entry.StartBlock, true
}

// ListFiles returns the names of every live file on the disk, in no
// particular order.
func (d *Disk) ListFiles() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dirMgr.Names()
}

// Close flushes the FAT and directory tables to the host file, syncs it,
// and closes the underlying handle. It aggregates every failure it
// encounters rather than stopping at the first.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs *multierror.Error

	fatBuf := d.fatMgr.Serialize()
	if _, err := d.host.WriteAt(fatBuf, d.header.FATOffset()); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("flush FAT: %w", err))
	}

	dirBuf := d.dirMgr.Serialize()
	if _, err := d.host.WriteAt(dirBuf, d.header.DirectoryOffset()); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("flush directory: %w", err))
	}

	if err := d.host.Sync(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("sync host file: %w", err))
	}

	if err := d.host.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close host file: %w", err))
	}

	return errs.ErrorOrNil()
}
