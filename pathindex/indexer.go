package pathindex

import (
	"fmt"

	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/pmap"
)

// pathEnumerator interns paths. *pmap.Enumerator[Path] implements it.
type pathEnumerator interface {
	Enumerate(p Path) (int32, error)
	TryEnumerate(p Path) (int32, bool, error)
	ValueOf(id int32) (Path, bool, error)
}

// indexer maps a commit to the kinds of every path it touched.
type indexer struct {
	paths   pathEnumerator
	renames pmap.Writer[codec.Pair, []codec.Pair]
	handle  ErrorHandler
}

// mapCommit classifies every touched path once per parent slot and stores
// the rename sets of the commit. Failures on one path or one rename set are
// reported and skipped.
func (ix *indexer) mapCommit(c Commit) map[int32][]ChangeKind {
	parents := c.ParentsCount()
	result := make(map[int32][]ChangeKind)

	kindsOf := func(id int32) []ChangeKind {
		kinds, ok := result[id]
		if !ok {
			kinds = make([]ChangeKind, parents)
			for i := range kinds {
				kinds[i] = NotChanged
			}
			result[id] = kinds
		}
		return kinds
	}

	for slot := range parents {
		changes := c.changes(slot)

		renamed := make(map[int32]struct{}, 2*len(changes.Renames))
		pairs := make([]codec.Pair, 0, len(changes.Renames))
		for _, r := range changes.Renames {
			from, ok := ix.encode(c.Root, r.From)
			if !ok {
				continue
			}
			to, ok := ix.encode(c.Root, r.To)
			if !ok {
				continue
			}
			pairs = append(pairs, codec.Pair{First: from, Second: to})
			kindsOf(from)[slot] = Removed
			kindsOf(to)[slot] = Added
			renamed[from] = struct{}{}
			renamed[to] = struct{}{}
		}

		if len(pairs) > 0 && slot < len(c.Parents) {
			key := codec.Pair{First: c.Parents[slot], Second: c.ID}
			if err := ix.renames.Put(key, pairs); err != nil {
				ix.handle(SourceIndex, fmt.Errorf("store renames %d -> %d: %w", key.First, key.Second, err))
			}
		}

		for _, m := range changes.Modified {
			id, ok := ix.encode(c.Root, m.Path)
			if !ok {
				continue
			}
			if _, ok := renamed[id]; ok {
				continue
			}
			kindsOf(id)[slot] = m.Type.Kind()
		}
	}
	return result
}

func (ix *indexer) encode(root, rel string) (int32, bool) {
	id, err := ix.paths.Enumerate(Path{Root: root, RelativePath: rel})
	if err != nil {
		ix.handle(SourceIndex, fmt.Errorf("encode %s: %w", Path{Root: root, RelativePath: rel}, err))
		return pmap.NullID, false
	}
	return id, true
}
