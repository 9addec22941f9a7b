// Package block implements byte-aligned, uncached I/O against the data
// region of a vdisk host file, given a zero-based block index.
package block

import (
	"fmt"
	"io"
)

// HostFile is the subset of *os.File that Storage needs: random-access
// reads and writes at absolute byte offsets. Storage performs no buffering
// of its own, so every call here round-trips to the host file.
type HostFile interface {
	io.ReaderAt
	io.WriterAt
}

// Storage performs block-aligned reads and writes against the data region
// of a host file starting at baseOffset. It holds no cache: every call is a
// direct ReadAt/WriteAt against the host file.
type Storage struct {
	host       HostFile
	baseOffset int64
	blockSize  int32
}

// New creates a Storage bound to the data region beginning at baseOffset,
// with blocks of blockSize bytes.
func New(host HostFile, baseOffset int64, blockSize int32) *Storage {
	return &Storage{host: host, baseOffset: baseOffset, blockSize: blockSize}
}

func (s *Storage) blockOffset(block int32) int64 {
	return s.baseOffset + int64(block)*int64(s.blockSize)
}

// Write writes data sequentially across blocks, in order. Each block but
// possibly the last receives exactly blockSize bytes; the caller guarantees
// enough bytes in data to fill every block except, at most, the last.
func (s *Storage) Write(blocks []int32, data []byte) error {
	remaining := data
	for _, blk := range blocks {
		n := int(s.blockSize)
		if n > len(remaining) {
			n = len(remaining)
		}

		if _, err := s.host.WriteAt(remaining[:n], s.blockOffset(blk)); err != nil {
			return fmt.Errorf("write block %d: %w", blk, err)
		}
		remaining = remaining[n:]
	}
	return nil
}

// AppendToBlock writes up to blockSize-offset bytes of data into block,
// starting at offset within that block. It returns the number of bytes
// written, which may be fewer than len(data) if data doesn't fill the rest
// of the block.
func (s *Storage) AppendToBlock(blk int32, offset int32, data []byte) (int, error) {
	if offset < 0 || offset >= s.blockSize {
		return 0, fmt.Errorf(
			"offset %d out of range [0, %d) for block %d", offset, s.blockSize, blk)
	}

	tail := int(s.blockSize - offset)
	n := len(data)
	if n > tail {
		n = tail
	}
	if n == 0 {
		return 0, nil
	}

	writeOffset := s.blockOffset(blk) + int64(offset)
	if _, err := s.host.WriteAt(data[:n], writeOffset); err != nil {
		return 0, fmt.Errorf("append to block %d at offset %d: %w", blk, offset, err)
	}
	return n, nil
}

// ReadBlock returns exactly blockSize bytes read from block.
func (s *Storage) ReadBlock(blk int32) ([]byte, error) {
	buf := make([]byte, s.blockSize)
	if _, err := s.host.ReadAt(buf, s.blockOffset(blk)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read block %d: %w", blk, err)
	}
	return buf, nil
}

// BlockSize returns the configured block size in bytes.
func (s *Storage) BlockSize() int32 {
	return s.blockSize
}
