package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/vcslog/blobstore"
	"github.com/hupe1980/vcslog/internal/compress"
	"github.com/hupe1980/vcslog/internal/hash"
	"github.com/hupe1980/vcslog/internal/resource"
	"golang.org/x/sync/errgroup"
)

// Restore downloads the live generation into dir, which must be missing or empty.
func Restore(ctx context.Context, store blobstore.BlobStore, dir string, optFns ...Option) (*Manifest, error) {
	o := applyOptions(optFns)
	start := time.Now()

	m, err := Current(ctx, store)
	if err != nil {
		return nil, err
	}
	for _, f := range m.Files {
		if !filepath.IsLocal(filepath.FromSlash(f.Path)) {
			return nil, fmt.Errorf("%w: path %q leaves the target", ErrCorruptManifest, f.Path)
		}
	}

	entries, err := o.FS.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if len(entries) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotEmpty, dir)
	}
	if err := o.FS.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for _, f := range m.Files {
		g.Go(func() error {
			if err := download(gctx, o, store, dir, m.Generation, f); err != nil {
				return fmt.Errorf("backup: restore %s: %w", f.Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.Logger.Info("snapshot restored",
		"generation", m.Generation,
		"files", len(m.Files),
		"bytes", m.TotalSize(),
		"duration", time.Since(start),
	)
	return m, nil
}

func download(ctx context.Context, o Options, store blobstore.BlobStore, dir, generation string, info FileInfo) error {
	if err := o.Resources.AcquireBackground(ctx); err != nil {
		return err
	}
	defer o.Resources.ReleaseBackground()

	blob, err := store.Open(ctx, blobName(generation, info.Path))
	if err != nil {
		return err
	}
	defer blob.Close()

	// Empty files compress to empty blobs.
	var src io.Reader = bytes.NewReader(nil)
	if blob.Size() > 0 {
		rc, err := blob.ReadRange(ctx, 0, blob.Size())
		if err != nil {
			return err
		}
		defer rc.Close()

		dec, err := compress.NewZstdReader(resource.NewRateLimitedReader(ctx, rc, o.Resources))
		if err != nil {
			return err
		}
		defer dec.Close()
		src = dec
	}

	target := filepath.Join(dir, filepath.FromSlash(info.Path))
	if err := o.FS.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp := target + ".tmp"
	f, err := o.FS.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		_ = f.Close()
		_ = o.FS.Remove(tmp)
		return err
	}

	crc := hash.NewCRC32C()
	n, err := io.Copy(io.MultiWriter(f, crc), src)
	if err != nil {
		return fail(err)
	}
	if n != info.Size || crc.Sum32() != info.CRC32C {
		return fail(fmt.Errorf("%w: got %d bytes crc %08x, want %d bytes crc %08x",
			ErrChecksumMismatch, n, crc.Sum32(), info.Size, info.CRC32C))
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = o.FS.Remove(tmp)
		return err
	}
	return o.FS.Rename(tmp, target)
}

// Prune deletes every blob that does not belong to the live generation and
// returns how many were removed. Without a published generation it does nothing.
func Prune(ctx context.Context, store blobstore.BlobStore) (int, error) {
	m, err := Current(ctx, store)
	if errors.Is(err, ErrNoBackup) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	names, err := store.List(ctx, "")
	if err != nil {
		return 0, err
	}
	keep := m.Generation + "/"
	removed := 0
	for _, name := range names {
		if name == CurrentFileName || strings.HasPrefix(name, keep) {
			continue
		}
		if err := store.Delete(ctx, name); err != nil {
			return removed, fmt.Errorf("backup: prune %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
