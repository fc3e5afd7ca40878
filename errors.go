package fat32nav

import "errors"

// The error taxonomy of the filesystem. Every error returned by this package
// wraps one of these sentinels or one of the File sentinels in file.go
// (ErrReadFile, ErrSeekFile, ErrReadDir), so callers can classify failures
// with errors.Is without inspecting messages.
var (
	// ErrIO covers short reads, seeks past the end of the image and any
	// other failure of the underlying byte source.
	ErrIO = errors.New("i/o error on image")

	// ErrInvalidImage is returned when the boot sector does not describe a
	// valid FAT32 volume.
	ErrInvalidImage = errors.New("not a valid FAT32 image")

	// ErrNotFound is returned when a path does not resolve to an entry.
	ErrNotFound = errors.New("path not found")

	// ErrNotADirectory is returned when a file is used where a directory
	// is required.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory is returned when a directory is used where a file
	// is required.
	ErrIsADirectory = errors.New("is a directory")

	// ErrBadCluster is returned when a cluster chain contains the
	// bad-cluster sentinel.
	ErrBadCluster = errors.New("bad cluster in chain")

	// ErrTransient is returned when re-opening the image failed and the
	// caller should retry with the previous state still intact.
	ErrTransient = errors.New("refresh failed, try again")

	// ErrReadOnly is returned by all mutating operations.
	ErrReadOnly = errors.New("filesystem is read-only")
)
