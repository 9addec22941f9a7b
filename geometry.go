package vdisk

import "github.com/go-vdisk/vdisk/internal/format"

// Geometry describes the fixed layout of a vdisk host file: the size of a
// data block, the number of data blocks (and therefore FAT entries), and
// the number of directory slots.
type Geometry struct {
	BlockSize  int32
	FATEntries int32
	MaxFiles   int32
}

// DefaultGeometry returns the reference default geometry: 4 KiB blocks,
// 256K FAT entries (1 GiB of data), 64K directory slots.
func DefaultGeometry() Geometry {
	return Geometry{
		BlockSize:  format.DefaultBlockSize,
		FATEntries: format.DefaultFATEntries,
		MaxFiles:   format.DefaultMaxFiles,
	}
}
