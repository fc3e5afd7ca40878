// Package checkpoint annotates errors with the file and line of the caller,
// building a lightweight trace as an error travels up the stack. Sentinel
// errors attached along the way stay visible to errors.Is and errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
)

// From records the caller as a checkpoint on err. It returns nil if err is
// nil. io.EOF and io.ErrUnexpectedEOF pass through untouched because much of
// the standard library compares them by identity.
func From(err error) error {
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}

	return &checkpoint{
		cause:  err,
		caller: callerLocation(),
	}
}

// Wrap records the caller as a checkpoint on cause and attaches mark, an
// additional error describing the checkpoint. Both cause and mark match
// errors.Is on the result. It returns nil if cause is nil; io.EOF passes
// through untouched.
//
// The intended use is to tag a low-level failure with a package-level
// sentinel:
//
//	if err := fs.image.seek(offset); err != nil {
//		return checkpoint.Wrap(err, ErrIO)
//	}
func Wrap(cause, mark error) error {
	if cause == nil || cause == io.EOF {
		return cause
	}

	return &checkpoint{
		cause:  cause,
		mark:   mark,
		caller: callerLocation(),
	}
}

func callerLocation() string {
	// Skip callerLocation itself and the exported wrapper.
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

type checkpoint struct {
	cause  error
	mark   error
	caller string
}

func (c *checkpoint) Error() string {
	if c.mark != nil {
		return fmt.Sprintf("%s [%s]: %s", c.mark, c.caller, c.cause)
	}
	return fmt.Sprintf("[%s]: %s", c.caller, c.cause)
}

func (c *checkpoint) Unwrap() error {
	return c.cause
}

func (c *checkpoint) Is(target error) bool {
	return c.mark != nil && errors.Is(c.mark, target)
}

func (c *checkpoint) As(target interface{}) bool {
	return c.mark != nil && errors.As(c.mark, target)
}
