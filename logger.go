package vcslog

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vcslog-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRoot adds a root field to the logger.
func (l *Logger) WithRoot(root string) *Logger {
	return &Logger{
		Logger: l.Logger.With("root", root),
	}
}

// WithDir adds the storage directory to the logger.
func (l *Logger) WithDir(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dir", dir),
	}
}

// LogOpen logs opening a storage directory.
func (l *Logger) LogOpen(ctx context.Context, commits, paths int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed", "error", err)
		return
	}
	l.InfoContext(ctx, "opened",
		"commits", commits,
		"paths", paths,
	)
}

// LogIndex logs indexing one commit.
func (l *Logger) LogIndex(ctx context.Context, hash string, changes int, updated bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index commit failed",
			"commit", hash,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index commit completed",
			"commit", hash,
			"changes", changes,
			"updated", updated,
		)
	}
}

// LogHistory logs a history query.
func (l *Logger) LogHistory(ctx context.Context, root, path string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "history failed",
			"root", root,
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "history completed",
			"root", root,
			"path", path,
			"results", results,
		)
	}
}

// LogFindRename logs a rename lookup.
func (l *Logger) LogFindRename(ctx context.Context, root, path string, found bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "find rename failed",
			"root", root,
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "find rename completed",
			"root", root,
			"path", path,
			"found", found,
		)
	}
}

// LogFlush logs a flush.
func (l *Logger) LogFlush(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed", "error", err)
	} else {
		l.DebugContext(ctx, "flush completed")
	}
}

// LogCompaction logs a compaction.
func (l *Logger) LogCompaction(ctx context.Context, stats CompactStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compaction failed",
			"bytes_before", stats.BytesBefore,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "compaction completed",
			"bytes_before", stats.BytesBefore,
			"bytes_after", stats.BytesAfter,
			"tombstones_dropped", stats.TombstonesDropped,
			"duration", stats.Duration,
		)
	}
}

// LogBackup logs a snapshot upload.
func (l *Logger) LogBackup(ctx context.Context, generation string, files int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "backup failed", "error", err)
	} else {
		l.InfoContext(ctx, "backup completed",
			"generation", generation,
			"files", files,
		)
	}
}
