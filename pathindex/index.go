package pathindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/internal/fs"
	"github.com/hupe1980/vcslog/pmap"
	"github.com/hupe1980/vcslog/pmap/sqlitemap"
	"golang.org/x/sync/errgroup"
)

// Storage names below the index directory.
const (
	PathsDir   = "paths-ids"
	RenamesDir = "renames-map"
	rootsFile  = "roots"
)

// Edge is a rename between a parent and a child commit.
type Edge struct {
	From Path
	To   Path
}

// PathsEncoder turns a path into its id. It never fails: a path that cannot
// be encoded is reported to the error handler and encodes to 0.
type PathsEncoder interface {
	Encode(root, relativePath string, isDirectory bool) int32
}

// PathsEncoderFunc adapts a function to PathsEncoder.
type PathsEncoderFunc func(root, relativePath string, isDirectory bool) int32

// Encode implements PathsEncoder.
func (f PathsEncoderFunc) Encode(root, relativePath string, isDirectory bool) int32 {
	return f(root, relativePath, isDirectory)
}

// Stats summarizes an Index.
type Stats struct {
	Paths   int
	Commits int
	// RenameEdges is -1 when the rename backend cannot count cheaply.
	RenameEdges int
}

// Index is the paths index. Update must be called from a single goroutine
// at a time; queries may run concurrently with it.
type Index struct {
	dir    string
	fsys   fs.FileSystem
	roots  Roots
	logger *slog.Logger
	handle ErrorHandler

	paths   *pmap.Enumerator[Path]
	renames pmap.Map[codec.Pair, []codec.Pair]
	forward *forwardIndex
	ix      *indexer

	mu     sync.Mutex
	closed atomic.Bool
}

// Open opens or creates the index stored in dir for the given roots.
func Open(dir string, roots []string, optFns ...Option) (*Index, error) {
	opts := Options{Backend: BackendLog}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = LogErrorHandler(opts.Logger)
	}
	mapOpts := append([]pmap.Option{pmap.WithLogger(opts.Logger)}, opts.MapOptions...)

	var mo pmap.Options
	for _, fn := range mapOpts {
		fn(&mo)
	}
	fsys := fs.OrDefault(mo.FS)

	rs := NewRoots(roots...)
	if err := checkRoots(fsys, dir, rs); err != nil {
		return nil, err
	}

	paths, err := pmap.OpenEnumerator(filepath.Join(dir, PathsDir), rs.PathCodec(), mapOpts...)
	if err != nil {
		return nil, err
	}
	renames, err := openRenames(filepath.Join(dir, RenamesDir), opts, mapOpts)
	if err != nil {
		_ = paths.Close()
		return nil, err
	}
	forward, err := openForward(dir, mapOpts)
	if err != nil {
		_ = renames.Close()
		_ = paths.Close()
		return nil, err
	}

	x := &Index{
		dir:     dir,
		fsys:    fsys,
		roots:   rs,
		logger:  opts.Logger.With("index", dir),
		handle:  opts.ErrorHandler,
		paths:   paths,
		renames: renames,
		forward: forward,
	}
	x.ix = &indexer{paths: paths, renames: renames, handle: opts.ErrorHandler}
	x.logger.Debug("path index opened", "roots", rs.Len(), "paths", paths.Len(), "backend", string(opts.Backend))
	return x, nil
}

func openRenames(dir string, opts Options, mapOpts []pmap.Option) (pmap.Map[codec.Pair, []codec.Pair], error) {
	switch opts.Backend {
	case BackendSQLite:
		return sqlitemap.Open(dir, codec.IntPair, codec.IntPairs, sqlitemap.WithLogger(opts.Logger))
	case BackendLog, "":
		return pmap.Open(dir, codec.IntPair, codec.IntPairs, mapOpts...)
	default:
		return nil, fmt.Errorf("pathindex: unknown backend %q", opts.Backend)
	}
}

// checkRoots records the root set on first open and rejects a different
// set later: stored paths refer to roots by position.
func checkRoots(fsys fs.FileSystem, dir string, rs Roots) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return &pmap.Error{Op: "open", Path: dir, Err: err}
	}

	name := filepath.Join(dir, rootsFile)
	data, err := fs.ReadFile(fsys, name)
	if err == nil {
		stored := NewRoots(strings.FieldsFunc(string(data), func(r rune) bool { return r == '\n' })...)
		if !stored.Equal(rs) {
			return fmt.Errorf("%w: stored %v, given %v", ErrRootsChanged, stored.List(), rs.List())
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return &pmap.Error{Op: "open", Path: name, Err: err}
	}
	if err := fs.WriteFileAtomic(fsys, name, []byte(strings.Join(rs.list, "\n"))); err != nil {
		return &pmap.Error{Op: "open", Path: name, Err: err}
	}
	return nil
}

func (x *Index) checkOpen() error {
	if x.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Roots returns the root set of the index.
func (x *Index) Roots() Roots { return x.roots }

// Dir returns the index directory.
func (x *Index) Dir() string { return x.dir }

// Classify maps a commit to the kinds of the paths it touched, one kind per
// parent slot, interning paths and storing rename sets on the way. It does
// not record the commit; see Update.
func (x *Index) Classify(c Commit) (map[int32][]ChangeKind, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}
	return x.ix.mapCommit(c), nil
}

// Update indexes c unless it is already indexed and reports whether it
// was. Per-path failures are reported to the error handler; storage
// failures of the forward index are returned.
func (x *Index) Update(c Commit) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.checkOpen(); err != nil {
		return false, err
	}

	indexed, err := x.forward.isIndexed(c.ID)
	if err != nil {
		return false, err
	}
	if indexed {
		return false, nil
	}

	kinds := x.ix.mapCommit(c)
	if err := x.forward.update(c.ID, kinds); err != nil {
		return false, err
	}
	x.logger.Debug("commit indexed", "commit", c.ID, "parents", c.ParentsCount(), "paths", len(kinds))
	return true, nil
}

// IsIndexed reports whether Update stored commit.
func (x *Index) IsIndexed(commit int32) (bool, error) {
	if err := x.checkOpen(); err != nil {
		return false, err
	}
	return x.forward.isIndexed(commit)
}

// FindRename looks up the rename stored for the parent and child commits
// whose new path (childSide) or old path is root/path. It does not intern
// root/path.
func (x *Index) FindRename(parent, child int32, root, path string, childSide bool) (Edge, bool, error) {
	if err := x.checkOpen(); err != nil {
		return Edge{}, false, err
	}

	pairs, ok, err := x.renames.Get(codec.Pair{First: parent, Second: child})
	if err != nil || !ok {
		return Edge{}, false, err
	}
	id, ok, err := x.paths.TryEnumerate(Path{Root: root, RelativePath: path})
	if err != nil || !ok {
		return Edge{}, false, err
	}

	for _, p := range pairs {
		if (childSide && p.Second == id) || (!childSide && p.First == id) {
			from, err := x.resolve(p.First)
			if err != nil {
				return Edge{}, false, err
			}
			to, err := x.resolve(p.Second)
			if err != nil {
				return Edge{}, false, err
			}
			return Edge{From: from, To: to}, true, nil
		}
	}
	return Edge{}, false, nil
}

func (x *Index) resolve(id int32) (Path, error) {
	p, ok, err := x.paths.ValueOf(id)
	if err != nil {
		return Path{}, err
	}
	if !ok {
		return Path{}, fmt.Errorf("%w: path id %d has no path", pmap.ErrCorrupt, id)
	}
	return p, nil
}

// IterateCommits calls fn with the kinds and the commit of every indexed
// commit touching root/path until fn returns false. A path that was never
// interned yields no calls and is not interned.
func (x *Index) IterateCommits(root, path string, fn func(kinds []ChangeKind, commit int32) bool) error {
	if err := x.checkOpen(); err != nil {
		return err
	}
	id, ok, err := x.paths.TryEnumerate(Path{Root: root, RelativePath: path})
	if err != nil || !ok {
		return err
	}
	return x.forward.iterate(id, fn)
}

// PathsEncoder returns an encoder interning paths of this index.
func (x *Index) PathsEncoder() PathsEncoder {
	return PathsEncoderFunc(func(root, relativePath string, _ bool) int32 {
		id, ok := x.ix.encode(root, relativePath)
		if !ok {
			return pmap.NullID
		}
		return id
	})
}

// PathID returns the id of root/path without interning it.
func (x *Index) PathID(root, path string) (int32, bool, error) {
	if err := x.checkOpen(); err != nil {
		return pmap.NullID, false, err
	}
	return x.paths.TryEnumerate(Path{Root: root, RelativePath: path})
}

// Path returns the path interned as id.
func (x *Index) Path(id int32) (Path, bool, error) {
	if err := x.checkOpen(); err != nil {
		return Path{}, false, err
	}
	return x.paths.ValueOf(id)
}

// RangePaths visits interned paths in id order until fn returns false.
func (x *Index) RangePaths(fn func(id int32, p Path) bool) error {
	if err := x.checkOpen(); err != nil {
		return err
	}
	return x.paths.Range(fn)
}

// CommitPaths returns the ids of the paths an indexed commit touched in
// ascending order.
func (x *Index) CommitPaths(commit int32) ([]int32, bool, error) {
	if err := x.checkOpen(); err != nil {
		return nil, false, err
	}
	return x.forward.commitPaths(commit)
}

// IsDirty reports whether any map holds unflushed mutations.
func (x *Index) IsDirty() bool {
	return x.paths.IsDirty() || x.renames.IsDirty() ||
		x.forward.commits.IsDirty() || x.forward.postings.IsDirty()
}

// Flush forces the forward index, the rename map and the path enumerator.
func (x *Index) Flush() error {
	if err := x.checkOpen(); err != nil {
		return err
	}
	var g errgroup.Group
	g.Go(x.forward.force)
	g.Go(x.renames.Force)
	g.Go(x.paths.Force)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("flush path index: %w", err)
	}
	return nil
}

// Dispose closes every map. Close failures are logged, not returned.
func (x *Index) Dispose() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed.Swap(true) {
		return
	}
	if err := x.forward.close(); err != nil {
		x.logger.Warn("closing forward index failed", "error", err)
	}
	if err := x.renames.Close(); err != nil {
		x.logger.Warn("closing rename map failed", "error", err)
	}
	if err := x.paths.Close(); err != nil {
		x.logger.Warn("closing path enumerator failed", "error", err)
	}
}

// CloseAndDelete closes the index and removes its storage, for instance to
// rebuild it after corruption was reported.
func (x *Index) CloseAndDelete() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed.Swap(true) {
		return ErrClosed
	}
	err := errors.Join(
		x.forward.closeAndDelete(),
		x.renames.CloseAndDelete(),
		x.paths.CloseAndDelete(),
	)
	if rerr := x.fsys.RemoveAll(x.dir); rerr != nil {
		err = errors.Join(err, &pmap.Error{Op: "delete", Path: x.dir, Err: rerr})
	}
	return err
}

// Stats returns counts of the stored entities.
func (x *Index) Stats() (Stats, error) {
	if err := x.checkOpen(); err != nil {
		return Stats{}, err
	}
	return Stats{
		Paths:       x.paths.Len(),
		Commits:     x.forward.commits.KeysCount(),
		RenameEdges: x.renames.KeysCount(),
	}, nil
}

// Compact compacts every log-backed map of the index.
func (x *Index) Compact(ctx context.Context) (pmap.CompactStats, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.checkOpen(); err != nil {
		return pmap.CompactStats{}, err
	}

	type compacter interface {
		Compact(ctx context.Context) (pmap.CompactStats, error)
	}
	targets := []compacter{x.paths, x.forward.commits, x.forward.postings}
	if c, ok := x.renames.(compacter); ok {
		targets = append(targets, c)
	}

	var total pmap.CompactStats
	for _, c := range targets {
		s, err := c.Compact(ctx)
		total.BytesBefore += s.BytesBefore
		total.BytesAfter += s.BytesAfter
		total.TombstonesDropped += s.TombstonesDropped
		total.Duration += s.Duration
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
