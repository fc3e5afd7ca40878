package fuse

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kesmeh/fat32nav"
	"github.com/kesmeh/fat32nav/checkpoint"
)

// session owns the open image handle and the parsed filesystem behind the
// mount. The core is single-threaded, so every operation runs under the
// session mutex even though the mount itself is single-threaded too.
type session struct {
	mu sync.Mutex

	imagePath     string
	refreshOnCall bool
	log           *logrus.Logger

	file *os.File
	fat  *fat32nav.Fs
}

func newSession(imagePath string, refreshOnCall bool, log *logrus.Logger) (*session, error) {
	s := &session{
		imagePath:     imagePath,
		refreshOnCall: refreshOnCall,
		log:           log,
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// reload swaps in a freshly opened and parsed view of the image. The swap is
// atomic from the caller's perspective: on any failure the previous handle
// and listing stay in place and ErrTransient is reported.
func (s *session) reload() error {
	file, err := os.Open(s.imagePath)
	if err != nil {
		return checkpoint.Wrap(err, fat32nav.ErrTransient)
	}

	fat, err := fat32nav.New(file)
	if err != nil {
		file.Close()
		return checkpoint.Wrap(err, fat32nav.ErrTransient)
	}

	if s.file != nil {
		s.file.Close()
	}
	s.file = file
	s.fat = fat

	return nil
}

// acquire returns the filesystem to serve the current callback from,
// re-reading the image first when the refresh-on-call policy is active.
// The caller must hold the session mutex.
func (s *session) acquire() (*fat32nav.Fs, error) {
	if s.refreshOnCall {
		if err := s.reload(); err != nil {
			s.log.WithError(err).WithField("image", s.imagePath).Warn("image refresh failed")
			return nil, err
		}
	}
	return s.fat, nil
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.fat = nil
}

// stat resolves a path to its FileInfo. The empty path is the root.
func (s *session) stat(path string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fat, err := s.acquire()
	if err != nil {
		return nil, err
	}
	return fat.Stat(path)
}

// entries lists the directory at path.
func (s *session) entries(path string) ([]os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fat, err := s.acquire()
	if err != nil {
		return nil, err
	}

	dir, err := fat.Open(path)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	return dir.Readdir(-1)
}

// readAt fills dest with file content starting at off and returns the
// number of bytes read. Reads at or past the end of the file return 0.
func (s *session) readAt(path string, dest []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fat, err := s.acquire()
	if err != nil {
		return 0, err
	}

	file, err := fat.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	n, err := file.ReadAt(dest, off)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}
