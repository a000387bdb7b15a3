package pmap

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/vcslog/internal/compress"
	"github.com/hupe1980/vcslog/internal/fs"
	"github.com/hupe1980/vcslog/internal/resource"
	"github.com/hupe1980/vcslog/internal/wal"
)

// Durability controls when mutations reach stable storage.
type Durability = wal.Durability

const (
	// DurabilityAsync syncs on Force only.
	DurabilityAsync = wal.DurabilityAsync
	// DurabilitySync syncs every mutation.
	DurabilitySync = wal.DurabilitySync
)

// ParseDurability parses "async" or "sync". The empty string selects
// DurabilityAsync.
func ParseDurability(s string) (Durability, error) {
	switch strings.ToLower(s) {
	case "", "async":
		return DurabilityAsync, nil
	case "sync":
		return DurabilitySync, nil
	default:
		return DurabilityAsync, fmt.Errorf("pmap: unknown durability %q", s)
	}
}

// Compression selects how values are compressed in the log.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// Options configures a LogMap.
type Options struct {
	FS          fs.FileSystem
	Logger      *slog.Logger
	Durability  Durability
	Compression Compression
	// CacheBytes bounds the decoded-value cache; 0 disables it.
	CacheBytes int64
	// Resources throttles compaction IO and accounts cache memory.
	Resources *resource.Controller
}

// Option configures a LogMap.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		FS:          fs.Default,
		Logger:      slog.New(slog.DiscardHandler),
		Durability:  DurabilityAsync,
		Compression: CompressionNone,
	}
}

// WithFileSystem sets the file system used for the log and hint files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *Options) {
		o.FS = fs.OrDefault(fsys)
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		o.Logger = l
	}
}

// WithDurability sets the durability mode.
func WithDurability(d Durability) Option {
	return func(o *Options) {
		o.Durability = d
	}
}

// WithCompression sets the value compression for new records.
// Existing records keep the compression they were written with.
func WithCompression(c Compression) Option {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithCacheSize enables a decoded-value cache bounded to bytes of encoded values.
func WithCacheSize(bytes int64) Option {
	return func(o *Options) {
		o.CacheBytes = bytes
	}
}

// WithResourceController sets the controller used for compaction IO and cache memory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *Options) {
		o.Resources = rc
	}
}
