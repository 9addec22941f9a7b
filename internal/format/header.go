// Package format implements the 16-byte superblock at the start of a vdisk
// host file and the derived byte offsets of the FAT, directory, and data
// regions that follow it.
package format

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size, in bytes, of the on-disk header.
const HeaderSize = 16

// DirentSize is the fixed size, in bytes, of one directory entry.
const DirentSize = 32

// Default geometry, per the reference: 4 KiB blocks, 256K FAT entries
// (1 GiB of data), 64K directory slots.
const (
	DefaultBlockSize  = 4096
	DefaultFATEntries = 262144
	DefaultMaxFiles   = 65536
)

// Header is the parsed form of the 16-byte superblock. All fields are
// little-endian, two's-complement 32-bit signed integers on disk.
type Header struct {
	BlockSize  int32
	FATEntries int32
	MaxFiles   int32
	reserved   int32
}

// NewHeader builds a Header from the given geometry, validating that every
// field is usable before any bytes are written to disk.
func NewHeader(blockSize, fatEntries, maxFiles int32) (Header, error) {
	h := Header{BlockSize: blockSize, FATEntries: fatEntries, MaxFiles: maxFiles}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// DefaultHeader returns the header for the default geometry described in
// the data model.
func DefaultHeader() Header {
	return Header{
		BlockSize:  DefaultBlockSize,
		FATEntries: DefaultFATEntries,
		MaxFiles:   DefaultMaxFiles,
	}
}

// Validate checks that the geometry described by h is usable. It does not
// enforce any particular power-of-two alignment; the reference format
// places no such constraint on blockSize, fatEntries, or maxFiles.
func (h Header) Validate() error {
	if h.BlockSize <= 0 {
		return fmt.Errorf("blockSize must be positive, got %d", h.BlockSize)
	}
	if h.FATEntries <= 0 {
		return fmt.Errorf("fatEntries must be positive, got %d", h.FATEntries)
	}
	if h.MaxFiles <= 0 {
		return fmt.Errorf("maxFiles must be positive, got %d", h.MaxFiles)
	}
	return nil
}

// Serialize encodes h as the 16-byte on-disk superblock.
func (h Header) Serialize() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.BlockSize))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.FATEntries))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.MaxFiles))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(0))
	return buf
}

// Parse decodes a 16-byte superblock. It returns an error if data is too
// short or the resulting geometry is invalid.
func Parse(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf(
			"header requires %d bytes, got %d", HeaderSize, len(data))
	}

	h := Header{
		BlockSize:  int32(binary.LittleEndian.Uint32(data[0:4])),
		FATEntries: int32(binary.LittleEndian.Uint32(data[4:8])),
		MaxFiles:   int32(binary.LittleEndian.Uint32(data[8:12])),
		reserved:   int32(binary.LittleEndian.Uint32(data[12:16])),
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// FATOffset is the byte offset of the first FAT entry.
func (h Header) FATOffset() int64 {
	return HeaderSize
}

// DirectoryOffset is the byte offset of the first directory entry.
func (h Header) DirectoryOffset() int64 {
	return h.FATOffset() + int64(h.FATEntries)*4
}

// DataOffset is the byte offset of the first data block.
func (h Header) DataOffset() int64 {
	return h.DirectoryOffset() + int64(h.MaxFiles)*DirentSize
}

// TotalSize is the size, in bytes, of a host file with this geometry fully
// populated: header + FAT + directory + all data blocks.
func (h Header) TotalSize() int64 {
	return h.DataOffset() + int64(h.FATEntries)*int64(h.BlockSize)
}
