package fat32nav

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/afero"

	"github.com/kesmeh/fat32nav/checkpoint"
)

// These errors may occur while processing a file.
var (
	ErrReadFile = errors.New("could not read file completely")
	ErrSeekFile = errors.New("could not seek inside of the file")
	ErrReadDir  = errors.New("could not read the directory")
)

// fatFileFs provides all methods needed from the filesystem by File.
// It mainly exists to be able to mock the Fs in tests.
// Generated mock using mockgen:
//
//	mockgen -source=file.go -destination=file_mock.go -package fat32nav
type fatFileFs interface {
	readFileAt(cluster fatEntry, fileSize int64, offset int64, readSize int64) ([]byte, error)
	readRoot() ([]ExtendedEntryHeader, error)
	readDir(cluster fatEntry) ([]ExtendedEntryHeader, error)
}

// File is a read-only handle on one entry of the image. It implements
// afero.File; all mutating methods fail with ErrReadOnly.
type File struct {
	fs   fatFileFs
	path string

	isDirectory bool
	isReadOnly  bool
	isHidden    bool
	isSystem    bool

	firstCluster fatEntry
	stat         os.FileInfo
	offset       int64
}

func (f *File) Close() error {
	*f = File{}
	return nil
}

// Read reads up to len(p) bytes from the current offset and advances it.
func (f *File) Read(p []byte) (n int, err error) {
	if p == nil {
		return 0, nil
	}
	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrIsADirectory)
	}

	if f.stat.Size() <= f.offset {
		return 0, io.EOF
	}

	data, err := f.fs.readFileAt(f.firstCluster, f.stat.Size(), f.offset, int64(len(p)))
	if data != nil {
		copy(p, data)
	}

	// Advance the offset even on error; the bytes were delivered.
	_, seekErr := f.Seek(int64(len(data)), io.SeekCurrent)

	if err != nil {
		return len(data), checkpoint.Wrap(err, ErrReadFile)
	}
	if seekErr != nil {
		return len(data), checkpoint.Wrap(seekErr, ErrReadFile)
	}

	return len(data), nil
}

// ReadAt reads up to len(p) bytes starting at off without touching the
// file offset.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if p == nil {
		return 0, nil
	}
	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrIsADirectory)
	}

	if f.stat.Size() <= off {
		return 0, io.EOF
	}

	data, err := f.fs.readFileAt(f.firstCluster, f.stat.Size(), off, int64(len(p)))
	if data != nil {
		copy(p, data)
	}

	if err != nil {
		return len(data), checkpoint.Wrap(err, ErrReadFile)
	}
	if len(data) < len(p) {
		return len(data), io.EOF
	}

	return len(data), nil
}

// Seek jumps to a specific offset in the file. This affects all Read
// operations except ReadAt.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > f.stat.Size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (f *File) WriteString(s string) (ret int, err error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (f *File) Name() string {
	return f.stat.Name()
}

// Readdir reads the contents of the directory and returns up to count
// FileInfo values, continuing where a previous call stopped.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	var content []ExtendedEntryHeader
	var err error
	if f.path == "" {
		content, err = f.fs.readRoot()
	} else {
		content, err = f.fs.readDir(f.firstCluster)
	}
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	end := len(content)

	if int64(len(content)) < f.offset+int64(count) {
		count = len(content) - int(f.offset)
		err = io.EOF
	}

	if count >= 0 {
		end = int(f.offset) + count
	}

	content = content[f.offset:end]

	if count > 0 {
		f.offset += int64(count)
	} else if count < 0 {
		f.offset = int64(end)
	}

	result := make([]os.FileInfo, len(content))
	for i := range content {
		result[i] = content[i].FileInfo()
	}

	return result, err
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}

func (f *File) Sync() error {
	return nil
}

func (f *File) Truncate(size int64) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

// readFileAt streams up to readSize bytes of payload starting at offset,
// walking the cluster chain from cluster. Offsets past the end of the file
// yield an empty result; a length past the end is clamped to the file size.
func (fs *Fs) readFileAt(cluster fatEntry, fileSize, offset, readSize int64) ([]byte, error) {
	if offset < 0 || readSize <= 0 || offset >= fileSize {
		return nil, nil
	}
	if offset+readSize > fileSize {
		readSize = fileSize - offset
	}

	bytesPerCluster := fs.header.bytesPerCluster()
	result := make([]byte, 0, readSize)
	remaining := readSize

	// pos is the logical byte index at the start of the current cluster.
	pos := int64(0)

	chain := newClusterChain(fs, cluster)
	for remaining > 0 {
		current, ok := chain.Next()
		if !ok {
			break
		}

		// Clusters entirely before the requested window are skipped
		// without touching the data region.
		if pos+bytesPerCluster <= offset {
			pos += bytesPerCluster
			continue
		}

		skip := int64(0)
		if offset > pos {
			skip = offset - pos
		}
		size := bytesPerCluster - skip
		if size > remaining {
			size = remaining
		}

		if err := fs.image.seek(fs.header.clusterAddress(current) + skip); err != nil {
			return result, err
		}
		data, err := fs.image.bytes(int(size))
		if err != nil {
			return result, err
		}

		result = append(result, data...)
		remaining -= size
		pos += bytesPerCluster
	}

	if err := chain.Err(); err != nil {
		return result, err
	}

	return result, nil
}
