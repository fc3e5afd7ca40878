package fat32nav

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/kesmeh/fat32nav/checkpoint"
)

// Fs is a read-only view on one FAT32 image. It implements afero.Fs; every
// mutating method fails with ErrReadOnly.
//
// An Fs is not safe for concurrent use: the seek position of the underlying
// reader and the current-directory cache are shared state. Callers that need
// parallelism open one Fs per goroutine.
type Fs struct {
	image  *imageReader
	header Header

	// root is the root directory listing, decoded once at open time.
	root []ExtendedEntryHeader

	// currentPath/currentDir cache the most recently resolved directory
	// to short-circuit repeated lookups of the same path.
	currentPath string
	currentDir  []ExtendedEntryHeader

	valid bool
}

var _ afero.Fs = (*Fs)(nil)

// New opens a FAT32 filesystem from the given reader. The header is decoded
// and validated once; afterwards it is treated as immutable configuration.
func New(reader io.ReadSeeker) (*Fs, error) {
	return newFs(reader, false)
}

// NewSkipChecks opens a FAT32 filesystem just like New but skips the
// validations that are not needed for address arithmetic. This may allow
// reading not perfectly standard images. Use with caution!
func NewSkipChecks(reader io.ReadSeeker) (*Fs, error) {
	return newFs(reader, true)
}

func newFs(reader io.ReadSeeker, skipChecks bool) (*Fs, error) {
	fs := &Fs{image: &imageReader{source: reader}}

	header, err := decodeHeader(fs.image, skipChecks)
	if err != nil {
		return nil, err
	}
	fs.header = header

	root, err := fs.readDir(header.EBPB.RootDirCluster)
	if err != nil {
		return nil, err
	}
	fs.root = root
	fs.currentDir = root
	fs.valid = true

	return fs, nil
}

// Label returns the volume label of the image.
func (fs *Fs) Label() string {
	return fs.header.Label()
}

// FreeClusters returns the free-cluster count cached in the FSInfo sector.
// The second return is false when the sector is invalid or the count is
// marked unknown.
func (fs *Fs) FreeClusters() (uint32, bool) {
	if !fs.header.FSInfoValid || fs.header.FSInfo.FreeClusters == unknownFSInfoValue {
		return 0, false
	}
	return fs.header.FSInfo.FreeClusters, true
}

// TotalClusters returns the number of data clusters of the volume.
func (fs *Fs) TotalClusters() uint32 {
	return fs.header.TotalClusters()
}

// splitPath breaks a slash-separated path into its non-empty segments. The
// empty path and "/" both denote the root and yield no segments.
func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// resolveDir walks the given directory path segment by segment, starting at
// the root, and returns the entry listing of the final directory. Segments
// match the logical entry name exactly. A missing segment, a segment that
// is a file and a broken chain all report ErrNotFound.
func (fs *Fs) resolveDir(path string) ([]ExtendedEntryHeader, error) {
	if err := fs.check(); err != nil {
		return nil, err
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return fs.root, nil
	}

	normalized := strings.Join(segments, "/")
	if fs.currentPath == normalized {
		return fs.currentDir, nil
	}

	entries := fs.root
	for _, segment := range segments {
		entry, found := findByName(entries, segment)
		if !found {
			return nil, checkpoint.From(ErrNotFound)
		}
		if !entry.IsDirectory() {
			return nil, checkpoint.Wrap(ErrNotADirectory, ErrNotFound)
		}

		var err error
		entries, err = fs.readDir(entry.FirstCluster())
		if err != nil {
			return nil, checkpoint.Wrap(err, ErrNotFound)
		}
	}

	fs.currentPath = normalized
	fs.currentDir = entries

	return entries, nil
}

// findEntry resolves a path to its directory entry. The root has no entry
// on disk, so the empty path reports ErrNotFound.
func (fs *Fs) findEntry(path string) (ExtendedEntryHeader, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ExtendedEntryHeader{}, checkpoint.From(ErrNotFound)
	}

	parent := strings.Join(segments[:len(segments)-1], "/")
	entries, err := fs.resolveDir(parent)
	if err != nil {
		return ExtendedEntryHeader{}, err
	}

	entry, found := findByName(entries, segments[len(segments)-1])
	if !found {
		return ExtendedEntryHeader{}, checkpoint.From(ErrNotFound)
	}

	return entry, nil
}

func findByName(entries []ExtendedEntryHeader, name string) (ExtendedEntryHeader, bool) {
	for _, entry := range entries {
		if entry.Name() == name {
			return entry, true
		}
	}
	return ExtendedEntryHeader{}, false
}

// Exists reports whether a path resolves to an entry. Absence is not an
// error at this level.
func (fs *Fs) Exists(path string) bool {
	if len(splitPath(path)) == 0 {
		return fs.valid
	}
	_, err := fs.findEntry(path)
	return err == nil
}

// check fails fast once the session is known to be unusable, for example on
// a zero-value Fs.
func (fs *Fs) check() error {
	if !fs.valid {
		return checkpoint.From(ErrInvalidImage)
	}
	return nil
}

// Open opens the file or directory at the given path for reading.
func (fs *Fs) Open(name string) (afero.File, error) {
	if err := fs.check(); err != nil {
		return nil, err
	}

	if len(splitPath(name)) == 0 {
		return &File{
			fs:           fs,
			path:         "",
			isDirectory:  true,
			firstCluster: fs.header.EBPB.RootDirCluster,
			stat:         rootDirInfo{},
		}, nil
	}

	entry, err := fs.findEntry(name)
	if err != nil {
		return nil, err
	}

	return &File{
		fs:           fs,
		path:         name,
		isDirectory:  entry.IsDirectory(),
		isReadOnly:   entry.IsReadOnly(),
		isHidden:     entry.IsHidden(),
		isSystem:     entry.IsSystem(),
		firstCluster: entry.FirstCluster(),
		stat:         entry.FileInfo(),
	}, nil
}

// OpenFile opens a file honoring the given flags. Any flag that implies a
// write fails with ErrReadOnly.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
	}
	return fs.Open(name)
}

// Stat returns the FileInfo of the entry at the given path.
func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	if err := fs.check(); err != nil {
		return nil, err
	}

	if len(splitPath(name)) == 0 {
		return rootDirInfo{}, nil
	}

	entry, err := fs.findEntry(name)
	if err != nil {
		return nil, err
	}
	return entry.FileInfo(), nil
}

func (fs *Fs) Name() string {
	return "FAT32"
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) Remove(name string) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) RemoveAll(path string) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) Rename(oldname, newname string) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}
