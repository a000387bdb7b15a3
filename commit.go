package vcslog

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/pathindex"
)

// CommitRecord is a commit as delivered by the VCS, identified by hashes.
//
// Changes holds one entry per parent, in parent order. A commit without
// parents may carry a single entry describing what it introduced.
type CommitRecord struct {
	Hash    string
	Root    string
	Parents []string
	Changes []pathindex.ParentChanges
}

func (r CommitRecord) changeCount() int {
	n := 0
	for _, pc := range r.Changes {
		n += len(pc.Modified) + len(pc.Renames)
	}
	return n
}

func (r CommitRecord) validate() error {
	if r.Hash == "" {
		return fmt.Errorf("%w: empty hash", ErrInvalidCommit)
	}
	if len(r.Changes) > max(1, len(r.Parents)) {
		return fmt.Errorf("%w: %d change sets for %d parents", ErrInvalidCommit, len(r.Changes), len(r.Parents))
	}
	for _, p := range r.Parents {
		if p == "" {
			return fmt.Errorf("%w: empty parent hash", ErrInvalidCommit)
		}
	}
	return nil
}

// commitKey identifies a commit by the index of its root and its hash.
type commitKey struct {
	root int32
	hash string
}

type commitKeyCodec struct{}

func (commitKeyCodec) Write(w *codec.Writer, k commitKey) error {
	w.WriteInt32(k.root)
	w.WriteUTF(k.hash)
	return nil
}

func (commitKeyCodec) Read(r *codec.Reader) (commitKey, error) {
	root, err := r.ReadInt32()
	if err != nil {
		return commitKey{}, err
	}
	hash, err := r.ReadUTF()
	if err != nil {
		return commitKey{}, err
	}
	return commitKey{root: root, hash: hash}, nil
}

// IndexCommit records the changes of rec. It returns false if the commit
// was indexed before. Hashes are assigned ids on first sight, so parents
// may be indexed after their children.
//
// Per-path failures are reported to the error handler and skipped; only
// failures that leave nothing to index are returned.
func (l *Log) IndexCommit(ctx context.Context, rec CommitRecord) (bool, error) {
	start := time.Now()
	updated, err := l.indexCommit(ctx, rec)
	if err != nil {
		err = &CommitError{Hash: rec.Hash, cause: translateError(err)}
	}
	l.metrics.RecordIndex(rec.changeCount(), time.Since(start), err)
	l.logger.LogIndex(ctx, rec.Hash, rec.changeCount(), updated, err)
	return updated, err
}

func (l *Log) indexCommit(ctx context.Context, rec CommitRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := rec.validate(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkOpen(); err != nil {
		return false, err
	}

	root, ok := l.roots.Index(rec.Root)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRoot, rec.Root)
	}

	id, err := l.commits.Enumerate(commitKey{root: root, hash: rec.Hash})
	if err != nil {
		return false, err
	}
	parents := make([]int32, len(rec.Parents))
	for i, p := range rec.Parents {
		if parents[i], err = l.commits.Enumerate(commitKey{root: root, hash: p}); err != nil {
			return false, err
		}
	}

	return l.index.Update(pathindex.Commit{
		ID:      id,
		Root:    rec.Root,
		Parents: parents,
		Changes: rec.Changes,
	})
}

// commitID resolves a known hash without assigning an id.
func (l *Log) commitID(root, hash string) (int32, bool, error) {
	idx, ok := l.roots.Index(root)
	if !ok {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownRoot, root)
	}
	return l.commits.TryEnumerate(commitKey{root: idx, hash: hash})
}

// commitHash resolves an id assigned by IndexCommit.
func (l *Log) commitHash(id int32) (string, error) {
	k, ok, err := l.commits.ValueOf(id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: commit id %d has no hash", ErrCorrupt, id)
	}
	return k.hash, nil
}
