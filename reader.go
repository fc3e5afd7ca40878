package fat32nav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kesmeh/fat32nav/checkpoint"
)

// imageReader provides typed little-endian reads on the seekable image
// handle. The seek position is shared state; every consumer seeks explicitly
// before reading.
type imageReader struct {
	source io.ReadSeeker
}

// seek moves the read position to an absolute byte offset.
func (r *imageReader) seek(offset int64) error {
	if _, err := r.source.Seek(offset, io.SeekStart); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}
	return nil
}

// skip advances the read position by n bytes.
func (r *imageReader) skip(n int64) error {
	if _, err := r.source.Seek(n, io.SeekCurrent); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}
	return nil
}

// bytes reads exactly n bytes. A short read is an ErrIO, never a partial
// result.
func (r *imageReader) bytes(n int) ([]byte, error) {
	buffer := make([]byte, n)
	if _, err := io.ReadFull(r.source, buffer); err != nil {
		// A read past the end of the image is an I/O failure here, not
		// an end-of-file condition the caller should handle.
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = fmt.Errorf("short read of %d bytes: %w", n, err)
		}
		return nil, checkpoint.Wrap(err, ErrIO)
	}
	return buffer, nil
}

func (r *imageReader) u8() (uint8, error) {
	buffer, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return buffer[0], nil
}

func (r *imageReader) u16() (uint16, error) {
	buffer, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buffer), nil
}

func (r *imageReader) u32() (uint32, error) {
	buffer, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buffer), nil
}
