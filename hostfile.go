package vdisk

import "io"

// HostFile is the disk's view of the single ordinary file backing the
// whole virtual disk. *os.File satisfies this directly; vdisktest.MemoryHost
// provides an in-memory equivalent for tests.
type HostFile interface {
	io.ReaderAt
	io.WriterAt
	// Sync forces any OS-buffered writes to durable storage.
	Sync() error
	// Truncate grows or shrinks the file, zero-filling any new region.
	Truncate(size int64) error
	Close() error
}
