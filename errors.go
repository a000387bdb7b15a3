package vcslog

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vcslog/backup"
	"github.com/hupe1980/vcslog/pathindex"
	"github.com/hupe1980/vcslog/pmap"
)

var (
	// ErrClosed is returned by operations on a closed Log.
	ErrClosed = errors.New("vcslog: closed")

	// ErrLocked is returned when the storage directory is held by another Log.
	ErrLocked = errors.New("vcslog: storage directory locked")

	// ErrCorrupt is returned when stored data cannot be decoded.
	ErrCorrupt = errors.New("vcslog: corrupt storage")

	// ErrUnknownRoot is returned for a root the Log was not opened with.
	ErrUnknownRoot = errors.New("vcslog: unknown root")

	// ErrRootsChanged is returned when a directory is reopened with other roots.
	ErrRootsChanged = errors.New("vcslog: root set changed")

	// ErrInvalidCommit is returned for a commit record that cannot be indexed.
	ErrInvalidCommit = errors.New("vcslog: invalid commit")

	// ErrNoBackup is returned by Restore when the store holds no snapshot.
	ErrNoBackup = errors.New("vcslog: no backup")
)

// CommitError reports a failure to index one commit.
//
// The original underlying error can be accessed via errors.Unwrap.
type CommitError struct {
	Hash  string
	cause error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("index commit %s: %v", e.Hash, e.cause)
}

func (e *CommitError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, pmap.ErrClosed), errors.Is(err, pathindex.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, pmap.ErrLocked):
		return fmt.Errorf("%w: %w", ErrLocked, err)
	case errors.Is(err, pmap.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	case errors.Is(err, pathindex.ErrUnknownRoot):
		return fmt.Errorf("%w: %w", ErrUnknownRoot, err)
	case errors.Is(err, pathindex.ErrRootsChanged):
		return fmt.Errorf("%w: %w", ErrRootsChanged, err)
	case errors.Is(err, backup.ErrNoBackup):
		return fmt.Errorf("%w: %w", ErrNoBackup, err)
	}
	return err
}
