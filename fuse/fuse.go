// Package fuse mounts a FAT32 image as a read-only user-space filesystem.
// It translates the getattr, readdir and read callbacks into core calls and
// maps the core error taxonomy onto platform error numbers.
package fuse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"

	"github.com/kesmeh/fat32nav"
)

// Options configures the FUSE mount.
type Options struct {
	// ImagePath is the FAT32 image file to serve.
	ImagePath string

	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// RefreshOnCall re-opens and re-parses the image before every
	// callback, tolerating images that change underneath the mount.
	// For a stable image it is wasteful and should stay off.
	RefreshOnCall bool

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a logger at warning
	// level is used.
	Logger *logrus.Logger
}

// Mount mounts the image at the configured mountpoint. The mount is served
// single-threaded, matching the synchronous core. The caller waits on and
// unmounts the returned server.
func Mount(options Options) (*fuse.Server, error) {
	if options.ImagePath == "" {
		return nil, fmt.Errorf("image path is required")
	}
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Logger == nil {
		options.Logger = logrus.New()
		options.Logger.SetLevel(logrus.WarnLevel)
	}

	session, err := newSession(options.ImagePath, options.RefreshOnCall, options.Logger)
	if err != nil {
		return nil, err
	}

	root := &dirNode{session: session}

	// With refresh-on-call the kernel must not serve stale entries from
	// its caches.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	if options.RefreshOnCall {
		entryTimeout = 0
		attrTimeout = 0
	}

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:         options.ImagePath,
			Name:           "fat32nav",
			AllowOther:     options.AllowOther,
			SingleThreaded: true,
		},
	})
	if err != nil {
		session.close()
		return nil, fmt.Errorf("mounting at %s: %w", options.Mountpoint, err)
	}

	options.Logger.WithFields(logrus.Fields{
		"image":      options.ImagePath,
		"mountpoint": options.Mountpoint,
	}).Info("FAT32 image mounted")

	return server, nil
}

// errnoFromError maps the core error taxonomy to errno values.
func errnoFromError(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, fat32nav.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, fat32nav.ErrIsADirectory) || errors.Is(err, syscall.EISDIR):
		return syscall.EISDIR
	case errors.Is(err, fat32nav.ErrNotADirectory) || errors.Is(err, syscall.ENOTDIR):
		return syscall.ENOTDIR
	case errors.Is(err, fat32nav.ErrTransient):
		return syscall.EAGAIN
	case errors.Is(err, fat32nav.ErrReadOnly) || errors.Is(err, syscall.EROFS):
		return syscall.EROFS
	default:
		return syscall.EIO
	}
}

// fillAttr populates a fuse attribute block from a resolved entry. The root
// directory reports mode 0755 and two links; everything else is 0555 or
// 0444 depending on the directory bit.
func fillAttr(out *fuse.Attr, info os.FileInfo, isRoot bool) {
	switch {
	case isRoot:
		out.Mode = syscall.S_IFDIR | 0o755
		out.Nlink = 2
	case info.IsDir():
		out.Mode = syscall.S_IFDIR | 0o555
		out.Nlink = 1
	default:
		out.Mode = syscall.S_IFREG | 0o444
		out.Nlink = 1
		out.Size = uint64(info.Size())
	}

	if modified := info.ModTime(); !modified.IsZero() {
		out.Mtime = uint64(modified.Unix())
	}
	if entry, ok := info.Sys().(fat32nav.ExtendedEntryHeader); ok {
		if created := entry.CreationDatetime(); !created.IsZero() {
			out.Ctime = uint64(created.Unix())
		}
	}
}

// dirNode serves a directory of the image. The root has the empty path.
type dirNode struct {
	gofuse.Inode
	session *session
	path    string
}

var _ gofuse.InodeEmbedder = (*dirNode)(nil)
var _ gofuse.NodeLookuper = (*dirNode)(nil)
var _ gofuse.NodeReaddirer = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)

func (d *dirNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	d.session.log.WithField("path", d.path).Debug("getattr")

	if d.path == "" {
		fillAttr(&out.Attr, rootInfo{}, true)
		return 0
	}

	info, err := d.session.stat(d.path)
	if err != nil {
		return errnoFromError(err)
	}
	fillAttr(&out.Attr, info, false)
	return 0
}

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	full := path.Join(d.path, name)
	d.session.log.WithField("path", full).Debug("lookup")

	info, err := d.session.stat(full)
	if err != nil {
		return nil, errnoFromError(err)
	}

	fillAttr(&out.Attr, info, false)

	if info.IsDir() {
		child := d.NewInode(ctx, &dirNode{session: d.session, path: full},
			gofuse.StableAttr{Mode: syscall.S_IFDIR})
		return child, 0
	}

	child := d.NewInode(ctx, &fileNode{session: d.session, path: full},
		gofuse.StableAttr{Mode: syscall.S_IFREG})
	return child, 0
}

func (d *dirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	d.session.log.WithField("path", d.path).Debug("readdir")

	infos, err := d.session.entries(d.path)
	if err != nil {
		return nil, errnoFromError(err)
	}

	var entries []fuse.DirEntry
	if d.path == "" {
		entries = append(entries,
			fuse.DirEntry{Name: ".", Mode: syscall.S_IFDIR},
			fuse.DirEntry{Name: "..", Mode: syscall.S_IFDIR},
		)
	}
	for _, info := range infos {
		mode := uint32(syscall.S_IFREG)
		if info.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: info.Name(), Mode: mode})
	}

	return &sliceDirStream{entries: entries}, 0
}

// fileNode serves one file of the image.
type fileNode struct {
	gofuse.Inode
	session *session
	path    string
}

var _ gofuse.InodeEmbedder = (*fileNode)(nil)
var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)

func (f *fileNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	f.session.log.WithField("path", f.path).Debug("getattr")

	info, err := f.session.stat(f.path)
	if err != nil {
		return errnoFromError(err)
	}
	fillAttr(&out.Attr, info, false)
	return 0
}

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	// A changing image invalidates the kernel page cache, so only a
	// stable mount may keep it.
	if f.session.refreshOnCall {
		return nil, fuse.FOPEN_DIRECT_IO, 0
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Read(ctx context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	f.session.log.WithFields(logrus.Fields{"path": f.path, "offset": off}).Debug("read")

	n, err := f.session.readAt(f.path, dest, off)
	if err != nil {
		return nil, errnoFromError(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

// sliceDirStream implements fs.DirStream over a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	next    int
}

func (s *sliceDirStream) HasNext() bool {
	return s.next < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	entry := s.entries[s.next]
	s.next++
	return entry, 0
}

func (s *sliceDirStream) Close() {}

// rootInfo stands in for the root directory, which has no entry on disk.
type rootInfo struct{}

func (rootInfo) Name() string       { return "/" }
func (rootInfo) Size() int64        { return 0 }
func (rootInfo) Mode() os.FileMode  { return os.ModeDir | 0o755 }
func (rootInfo) ModTime() time.Time { return time.Time{} }
func (rootInfo) IsDir() bool        { return true }
func (rootInfo) Sys() interface{}   { return nil }
