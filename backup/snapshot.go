package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/vcslog/blobstore"
	"github.com/hupe1980/vcslog/internal/compress"
	"github.com/hupe1980/vcslog/internal/fs"
	"github.com/hupe1980/vcslog/internal/hash"
	"github.com/hupe1980/vcslog/internal/resource"
	"golang.org/x/sync/errgroup"
)

// Snapshot uploads every file under dir as a new generation and publishes it.
//
// Lock files, temporary files and SQLite shared-memory files are skipped.
// If an upload or the manifest write fails, every blob of the generation is
// deleted. After a failed publish the blobs are kept, because the pointer
// may have been written; Prune removes them once another generation is live.
func Snapshot(ctx context.Context, dir string, store blobstore.BlobStore, optFns ...Option) (*Manifest, error) {
	o := applyOptions(optFns)
	start := time.Now()

	files, err := listFiles(o.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("backup: list %s: %w", dir, err)
	}

	m := &Manifest{
		Version:    CurrentVersion,
		Generation: uuid.NewString(),
		CreatedAt:  start.UTC(),
		Files:      make([]FileInfo, len(files)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for i, rel := range files {
		g.Go(func() error {
			info, err := upload(gctx, o, store, dir, m.Generation, rel)
			if err != nil {
				return fmt.Errorf("backup: upload %s: %w", rel, err)
			}
			m.Files[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		discard(ctx, o, store, m.Generation)
		return nil, err
	}

	if err := saveManifest(ctx, store, m); err != nil {
		discard(ctx, o, store, m.Generation)
		return nil, fmt.Errorf("backup: write manifest: %w", err)
	}
	if err := store.Put(ctx, CurrentFileName, []byte(m.Generation)); err != nil {
		return nil, fmt.Errorf("backup: publish %s: %w", m.Generation, err)
	}

	o.Logger.Info("snapshot published",
		"generation", m.Generation,
		"files", len(m.Files),
		"bytes", m.TotalSize(),
		"duration", time.Since(start),
	)
	return m, nil
}

// discard deletes the blobs of an unpublished generation. Failures are
// logged; Prune collects what is left.
func discard(ctx context.Context, o Options, store blobstore.BlobStore, generation string) {
	ctx = context.WithoutCancel(ctx)
	names, err := store.List(ctx, generation+"/")
	if err != nil {
		o.Logger.Warn("listing failed generation", "generation", generation, "error", err)
		return
	}
	for _, name := range names {
		if err := store.Delete(ctx, name); err != nil {
			o.Logger.Warn("deleting blob of failed generation", "blob", name, "error", err)
		}
	}
}

func skipFile(name string) bool {
	return name == "LOCK" ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasSuffix(name, ".compact") ||
		strings.HasSuffix(name, "-shm")
}

// listFiles returns the slash-separated paths of all regular files under dir.
func listFiles(fsys fs.FileSystem, dir string) ([]string, error) {
	var files []string
	var walk func(rel string) error
	walk = func(rel string) error {
		entries, err := fsys.ReadDir(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		for _, e := range entries {
			child := path.Join(rel, e.Name())
			switch {
			case e.IsDir():
				if err := walk(child); err != nil {
					return err
				}
			case e.Type().IsRegular() && !skipFile(e.Name()):
				files = append(files, child)
			}
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func upload(ctx context.Context, o Options, store blobstore.BlobStore, dir, generation, rel string) (FileInfo, error) {
	if err := o.Resources.AcquireBackground(ctx); err != nil {
		return FileInfo{}, err
	}
	defer o.Resources.ReleaseBackground()

	f, err := o.FS.OpenFile(filepath.Join(dir, filepath.FromSlash(rel)), os.O_RDONLY, 0)
	if err != nil {
		return FileInfo{}, err
	}
	defer f.Close()

	name := blobName(generation, rel)
	w, err := store.Create(ctx, name)
	if err != nil {
		return FileInfo{}, err
	}
	abort := func(err error) (FileInfo, error) {
		_ = w.Close()
		_ = store.Delete(context.WithoutCancel(ctx), name)
		return FileInfo{}, err
	}

	out := &countingWriter{w: w}
	enc, err := compress.NewZstdWriter(out)
	if err != nil {
		return abort(err)
	}
	crc := hash.NewCRC32C()
	n, err := io.Copy(enc, io.TeeReader(resource.NewRateLimitedReader(ctx, f, o.Resources), crc))
	if err != nil {
		_ = enc.Close()
		return abort(err)
	}
	if err := enc.Close(); err != nil {
		return abort(err)
	}
	if err := w.Close(); err != nil {
		_ = store.Delete(context.WithoutCancel(ctx), name)
		return FileInfo{}, err
	}

	return FileInfo{
		Path:           rel,
		Size:           n,
		CompressedSize: out.n,
		CRC32C:         crc.Sum32(),
	}, nil
}
