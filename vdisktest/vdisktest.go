// Package vdisktest provides an in-memory host file for exercising vdisk
// without touching the filesystem.
package vdisktest

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-vdisk/vdisk/internal/format"
	"github.com/xaionaro-go/bytesextra"
)

// MemoryHost is an in-memory implementation of vdisk.HostFile backed by a
// byte slice whose size changes only through Truncate. It wraps an io.ReadWriteSeeker from bytesextra and
// adapts it to the ReaderAt/WriterAt shape the disk package needs, guarding
// the underlying seek+read/write pair with a mutex since it isn't safe for
// concurrent use on its own.
type MemoryHost struct {
	mu   sync.Mutex
	rws  io.ReadWriteSeeker
	size int64
}

// New creates a MemoryHost with an initial capacity of size bytes, all
// initially zero.
func New(size int64) *MemoryHost {
	buf := make([]byte, size)
	return &MemoryHost{rws: bytesextra.NewReadWriteSeeker(buf), size: size}
}

// NewForGeometry creates a MemoryHost already sized to hold a disk with the
// given geometry in full, so that the Truncate call vdisk.CreateOnHost makes
// while laying out the header, FAT, and directory regions never needs to
// grow the backing buffer again once data blocks start getting written.
func NewForGeometry(blockSize, fatEntries, maxFiles int32) (*MemoryHost, error) {
	header, err := format.NewHeader(blockSize, fatEntries, maxFiles)
	if err != nil {
		return nil, err
	}
	return New(header.TotalSize()), nil
}

// ReadAt implements io.ReaderAt.
func (m *MemoryHost) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.rws.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(m.rws, p)
}

// WriteAt implements io.WriterAt. Writes past the configured size fail,
// since unlike a real host file a MemoryHost cannot sparsely grow.
func (m *MemoryHost) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if off+int64(len(p)) > m.size {
		return 0, fmt.Errorf(
			"write of %d bytes at offset %d exceeds memory host size %d",
			len(p), off, m.size)
	}
	if _, err := m.rws.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return m.rws.Write(p)
}

// Sync is a no-op; there is no durable medium to flush to.
func (m *MemoryHost) Sync() error { return nil }

// Close is a no-op; there is no handle to release.
func (m *MemoryHost) Close() error { return nil }

// Truncate grows the host's addressable size, zero-filling the new region.
// Unlike os.File.Truncate it never shrinks: vdisk only ever calls Truncate
// to establish room for the header/FAT/directory regions once, up front,
// and a MemoryHost built via NewForGeometry is already sized for the
// largest region any disk operation will touch.
func (m *MemoryHost) Truncate(newSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if newSize <= m.size {
		return nil
	}

	newBuf := make([]byte, newSize)
	if _, err := m.rws.Seek(0, io.SeekStart); err != nil {
		return err
	}

	readLen := newSize
	if m.size < readLen {
		readLen = m.size
	}
	if readLen > 0 {
		if _, err := io.ReadFull(m.rws, newBuf[:readLen]); err != nil && err != io.ErrUnexpectedEOF {
			return err
		}
	}

	m.rws = bytesextra.NewReadWriteSeeker(newBuf)
	m.size = newSize
	return nil
}
