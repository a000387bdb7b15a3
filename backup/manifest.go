package backup

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hupe1980/vcslog/blobstore"
)

const (
	// ManifestFileName is the manifest blob inside a generation.
	ManifestFileName = "MANIFEST"
	// CurrentFileName names the live generation.
	CurrentFileName = "CURRENT"
	// CurrentVersion is the manifest format version.
	CurrentVersion = 1

	blobSuffix = ".zst"
)

// Manifest describes one snapshot generation.
type Manifest struct {
	Version    int        `json:"version"`
	Generation string     `json:"generation"`
	CreatedAt  time.Time  `json:"created_at"`
	Files      []FileInfo `json:"files"`
}

// FileInfo describes a single file of the snapshot.
type FileInfo struct {
	Path           string `json:"path"` // Slash-separated, relative to the storage dir
	Size           int64  `json:"size"`
	CompressedSize int64  `json:"compressed_size"`
	CRC32C         uint32 `json:"crc32c"`
}

// TotalSize returns the uncompressed size of all files.
func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, f := range m.Files {
		n += f.Size
	}
	return n
}

func blobName(generation, rel string) string {
	return path.Join(generation, rel) + blobSuffix
}

func manifestName(generation string) string {
	return path.Join(generation, ManifestFileName)
}

func saveManifest(ctx context.Context, store blobstore.BlobStore, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return store.Put(ctx, manifestName(m.Generation), data)
}

// Current returns the manifest of the live generation.
func Current(ctx context.Context, store blobstore.BlobStore) (*Manifest, error) {
	gen, err := blobstore.ReadAll(ctx, store, CurrentFileName)
	if err != nil {
		if blobstore.IsNotFound(err) {
			return nil, ErrNoBackup
		}
		return nil, fmt.Errorf("read %s: %w", CurrentFileName, err)
	}
	return LoadManifest(ctx, store, strings.TrimSpace(string(gen)))
}

// LoadManifest reads the manifest of generation.
func LoadManifest(ctx context.Context, store blobstore.BlobStore, generation string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, manifestName(generation))
	if err != nil {
		return nil, fmt.Errorf("read manifest of %s: %w", generation, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptManifest, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrUnsupportedVersion, m.Version, CurrentVersion)
	}
	if m.Generation != generation {
		return nil, fmt.Errorf("%w: generation %q stored under %q", ErrCorruptManifest, m.Generation, generation)
	}
	return &m, nil
}
