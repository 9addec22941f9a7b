package vdisk

import "fmt"

// VDiskError is a sentinel error type, modeled as a plain string so that
// package-level constants can be compared directly with errors.Is without
// an indirection through a struct.
type VDiskError string

// ErrInvalidFileName is returned when a name is blank, whitespace-only, or
// whose UTF-8 encoding exceeds the 24-byte name field.
const ErrInvalidFileName = VDiskError("invalid file name")

// ErrFileNotFound is returned when a named file has no live directory entry,
// and also when LoadFromFile is pointed at a host file that doesn't exist.
const ErrFileNotFound = VDiskError("file not found")

// ErrDirectoryFull is returned when no unused directory slot is available.
const ErrDirectoryFull = VDiskError("directory is full")

// ErrInsufficientSpace is returned when the FAT has fewer free blocks than
// the operation requires.
const ErrInsufficientSpace = VDiskError("insufficient space on disk")

// ErrInvalidBlockOperation names programmer errors in block operations, such
// as an out-of-range offset passed to AppendToBlock. No operation in this
// package returns it: the block storage layer reports an out-of-range offset
// as a plain error, and AppendFile wraps that error in ErrIO.
const ErrInvalidBlockOperation = VDiskError("invalid block operation")

// ErrCorruptDisk is returned when on-disk metadata fails to parse into a
// consistent structure (e.g. a header with an impossible geometry).
const ErrCorruptDisk = VDiskError("disk image is corrupt")

// ErrIO is returned when a host-file read or write fails for reasons
// outside the disk format itself (disk full, permission denied, ...).
const ErrIO = VDiskError("I/O error")

// Error implements the error interface.
func (e VDiskError) Error() string {
	return string(e)
}

// WithMessage returns a new error with additional context appended, while
// still satisfying errors.Is against e.
func (e VDiskError) WithMessage(message string) error {
	return wrappedError{
		message: fmt.Sprintf("%s: %s", string(e), message),
		cause:   e,
	}
}

// Wrap returns a new error that chains both e and err, so that
// errors.Is(result, e) and errors.Is(result, err) both hold.
func (e VDiskError) Wrap(err error) error {
	return wrappedError{
		message: fmt.Sprintf("%s: %s", string(e), err.Error()),
		cause:   e,
		next:    err,
	}
}

type wrappedError struct {
	message string
	cause   error
	next    error
}

func (e wrappedError) Error() string { return e.message }

func (e wrappedError) Is(target error) bool {
	return e.cause == target
}

func (e wrappedError) Unwrap() error {
	if e.next != nil {
		return e.next
	}
	return e.cause
}
