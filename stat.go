package fat32nav

import (
	"os"
	"strings"
	"time"
)

// Name returns the logical name of the entry: the long name when one was
// stored, otherwise the 8.3 short name with its padding removed.
func (h *ExtendedEntryHeader) Name() string {
	if h.LongName != "" {
		return strings.TrimRight(h.LongName, " ")
	}

	name := trimmedString(h.ShortName[:8])
	extension := trimmedString(h.ShortName[8:11])
	if extension != "" {
		return name + "." + extension
	}

	return name
}

// FileInfo returns an os.FileInfo view of the entry.
func (h *ExtendedEntryHeader) FileInfo() os.FileInfo {
	return entryHeaderFileInfo{*h}
}

func trimmedString(raw []byte) string {
	return strings.TrimRight(string(raw), " ")
}

type entryHeaderFileInfo struct {
	entry ExtendedEntryHeader
}

func (e entryHeaderFileInfo) Name() string {
	return e.entry.Name()
}

func (e entryHeaderFileInfo) Size() int64 {
	return int64(e.entry.EntryHeader.Size)
}

func (e entryHeaderFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0o555
	}
	return 0o444
}

func (e entryHeaderFileInfo) ModTime() time.Time {
	return e.entry.LastModificationDatetime()
}

func (e entryHeaderFileInfo) IsDir() bool {
	return e.entry.IsDirectory()
}

func (e entryHeaderFileInfo) Sys() interface{} {
	return e.entry
}

// rootDirInfo describes the root directory, which has no entry of its own
// on disk.
type rootDirInfo struct{}

func (rootDirInfo) Name() string       { return "/" }
func (rootDirInfo) Size() int64        { return 0 }
func (rootDirInfo) Mode() os.FileMode  { return os.ModeDir | 0o755 }
func (rootDirInfo) ModTime() time.Time { return time.Time{} }
func (rootDirInfo) IsDir() bool        { return true }
func (rootDirInfo) Sys() interface{}   { return nil }
