package vcslog

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/hupe1980/vcslog/pathindex"
)

// HistoryEntry is one commit that touched a path.
type HistoryEntry struct {
	Commit string
	// Kinds holds one change kind per parent of the commit.
	Kinds []pathindex.ChangeKind
}

// Changed reports whether the path differs from at least one parent.
func (e HistoryEntry) Changed() bool {
	for _, k := range e.Kinds {
		if k != pathindex.NotChanged {
			return true
		}
	}
	return false
}

// History returns the indexed commits that touched root/path in ascending
// commit id, which is the order their hashes were first seen as a commit or
// a parent. Querying a path that was never indexed interns nothing.
func (l *Log) History(ctx context.Context, root, path string) ([]HistoryEntry, error) {
	start := time.Now()
	entries, err := l.history(ctx, root, path)
	l.metrics.RecordHistory(len(entries), time.Since(start), err)
	l.logger.LogHistory(ctx, root, path, len(entries), err)
	return entries, err
}

func (l *Log) history(ctx context.Context, root, path string) ([]HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkOpen(); err != nil {
		return nil, err
	}

	type hit struct {
		id    int32
		kinds []pathindex.ChangeKind
	}
	var hits []hit
	err := l.index.IterateCommits(root, path, func(kinds []pathindex.ChangeKind, commit int32) bool {
		hits = append(hits, hit{id: commit, kinds: kinds})
		return ctx.Err() == nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Postings are stored in ingest order.
	slices.SortFunc(hits, func(a, b hit) int { return cmp.Compare(a.id, b.id) })

	entries := make([]HistoryEntry, 0, len(hits))
	for _, h := range hits {
		hash, err := l.commitHash(h.id)
		if err != nil {
			return nil, translateError(err)
		}
		entries = append(entries, HistoryEntry{Commit: hash, Kinds: h.kinds})
	}
	return entries, nil
}

// FindRename looks up the rename between parent and child that involves
// root/path: on the child side when childSide is set, otherwise on the
// parent side. Unknown commits yield no rename.
func (l *Log) FindRename(ctx context.Context, parent, child, root, path string, childSide bool) (pathindex.Edge, bool, error) {
	start := time.Now()
	edge, found, err := l.findRename(ctx, parent, child, root, path, childSide)
	l.metrics.RecordFindRename(found, time.Since(start), err)
	l.logger.LogFindRename(ctx, root, path, found, err)
	return edge, found, err
}

func (l *Log) findRename(ctx context.Context, parent, child, root, path string, childSide bool) (pathindex.Edge, bool, error) {
	if err := ctx.Err(); err != nil {
		return pathindex.Edge{}, false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkOpen(); err != nil {
		return pathindex.Edge{}, false, err
	}

	parentID, ok, err := l.commitID(root, parent)
	if err != nil || !ok {
		return pathindex.Edge{}, false, translateError(err)
	}
	childID, ok, err := l.commitID(root, child)
	if err != nil || !ok {
		return pathindex.Edge{}, false, translateError(err)
	}

	edge, found, err := l.index.FindRename(parentID, childID, root, path, childSide)
	return edge, found, translateError(err)
}

// ChangedPaths returns the paths an indexed commit touched in the order
// they were first seen. It reports false for a commit that was not indexed.
func (l *Log) ChangedPaths(ctx context.Context, root, hash string) ([]pathindex.Path, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkOpen(); err != nil {
		return nil, false, err
	}

	id, ok, err := l.commitID(root, hash)
	if err != nil || !ok {
		return nil, false, translateError(err)
	}
	ids, ok, err := l.index.CommitPaths(id)
	if err != nil || !ok {
		return nil, false, translateError(err)
	}

	paths := make([]pathindex.Path, 0, len(ids))
	for _, pid := range ids {
		p, ok, err := l.index.Path(pid)
		if err != nil {
			return nil, false, translateError(err)
		}
		if ok {
			paths = append(paths, p)
		}
	}
	return paths, true, nil
}

// Paths visits the known paths of root until fn returns false.
func (l *Log) Paths(root string, fn func(path string) bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkOpen(); err != nil {
		return err
	}
	if _, ok := l.roots.Index(root); !ok {
		return ErrUnknownRoot
	}
	return translateError(l.index.RangePaths(func(_ int32, p pathindex.Path) bool {
		if p.Root != root {
			return true
		}
		return fn(p.RelativePath)
	}))
}

// Commits visits the known commit hashes until fn returns false.
func (l *Log) Commits(fn func(root, hash string) bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkOpen(); err != nil {
		return err
	}
	return translateError(l.commits.Range(func(_ int32, k commitKey) bool {
		root, _ := l.roots.Root(k.root)
		return fn(root, k.hash)
	}))
}
