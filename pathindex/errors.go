package pathindex

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrUnknownChangeKind is returned when a stored kind byte is not a known ChangeKind.
	ErrUnknownChangeKind = errors.New("pathindex: unknown change kind")

	// ErrUnknownRoot is returned for a root outside the index's root set.
	ErrUnknownRoot = errors.New("pathindex: unknown root")

	// ErrRootsChanged is returned when an index is reopened with a different root set.
	ErrRootsChanged = errors.New("pathindex: root set differs from the stored one")

	// ErrClosed is returned by operations on a disposed index.
	ErrClosed = errors.New("pathindex: index closed")
)

// Source names the stage an error handler is called from.
type Source int

const (
	// SourceIndex covers ingestion and path encoding.
	SourceIndex Source = iota
	// SourceStorage covers persisting and releasing the index maps.
	SourceStorage
)

func (s Source) String() string {
	switch s {
	case SourceIndex:
		return "index"
	case SourceStorage:
		return "storage"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// ErrorHandler receives failures the index does not return to its caller.
// It is called once per failure.
type ErrorHandler func(source Source, err error)

// LogErrorHandler returns an ErrorHandler logging at error level.
func LogErrorHandler(logger *slog.Logger) ErrorHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(source Source, err error) {
		logger.Error("path index failure", "source", source.String(), "error", err)
	}
}
