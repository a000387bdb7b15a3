package pmap

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is wrapped by every storage failure.
	ErrIO = errors.New("pmap: i/o error")

	// ErrCorrupt marks undecodable stored bytes. Errors wrapping it also wrap ErrIO.
	ErrCorrupt = errors.New("pmap: corrupt data")

	// ErrClosed is returned by operations on a closed map.
	ErrClosed = errors.New("pmap: map closed")

	// ErrLocked is returned when the map directory is held by another instance.
	ErrLocked = errors.New("pmap: map locked by another instance")
)

// Error describes a failed map operation.
//
// errors.Is(err, ErrIO) holds for every *Error; the cause is available
// through errors.Unwrap chains as well.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pmap: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrIO, e.Err} }

func ioError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Err: err}
}

func corruptError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrCorrupt, err)}
}
