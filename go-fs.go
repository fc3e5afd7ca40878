package fat32nav

import (
	"io"
	"io/fs"

	"github.com/kesmeh/fat32nav/checkpoint"
)

// GoDirEntry adapts an os.FileInfo to fs.DirEntry.
type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

// GoFile adapts a File to fs.File and fs.ReadDirFile.
type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.File.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, entry := range entries {
		goEntries[i] = GoDirEntry{entry}
	}

	return goEntries, err
}

// GoFs wraps the afero FAT implementation to be compatible with fs.FS.
type GoFs struct {
	*Fs
}

// NewGoFS opens a FAT32 filesystem from the given reader as an fs.FS
// compatible filesystem.
func NewGoFS(reader io.ReadSeeker) (*GoFs, error) {
	fat, err := New(reader)
	if err != nil {
		return nil, err
	}

	return &GoFs{fat}, nil
}

// NewGoFSSkipChecks opens a FAT32 filesystem as fs.FS just like NewGoFS but
// skips some validations, which may allow opening not perfectly standard
// images. Use with caution!
func NewGoFSSkipChecks(reader io.ReadSeeker) (*GoFs, error) {
	fat, err := NewSkipChecks(reader)
	if err != nil {
		return nil, err
	}

	return &GoFs{fat}, nil
}

func (g GoFs) Open(name string) (fs.File, error) {
	file, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	f, ok := file.(*File)
	if !ok {
		return nil, checkpoint.From(ErrReadFile)
	}

	return GoFile{f}, nil
}
