package pathindex

import (
	"path/filepath"
	"testing"

	"github.com/hupe1980/vcslog/pmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoot = "/repo"

func openIndex(t *testing.T, dir string, opts ...Option) *Index {
	t.Helper()
	x, err := Open(dir, []string{testRoot, "/other"}, opts...)
	require.NoError(t, err)
	return x
}

type history struct {
	Commit int32
	Kinds  []ChangeKind
}

func collectHistory(t *testing.T, x *Index, path string) []history {
	t.Helper()
	var out []history
	require.NoError(t, x.IterateCommits(testRoot, path, func(kinds []ChangeKind, commit int32) bool {
		out = append(out, history{Commit: commit, Kinds: kinds})
		return true
	}))
	return out
}

func TestIndexRenameRecording(t *testing.T) {
	x := openIndex(t, t.TempDir())
	defer x.Dispose()

	enc := x.PathsEncoder()
	for i, rel := range []string{"p1", "p2", "p3", "p4", "a.txt", "p6", "b.txt"} {
		require.Equal(t, int32(i+1), enc.Encode(testRoot, rel, false))
	}

	commit := Commit{
		ID:      100,
		Root:    testRoot,
		Parents: []int32{99},
		Changes: []ParentChanges{{Renames: []Rename{{From: "a.txt", To: "b.txt"}}}},
	}
	kinds, err := x.Classify(commit)
	require.NoError(t, err)
	assert.Equal(t, map[int32][]ChangeKind{5: {Removed}, 7: {Added}}, kinds)

	edge, ok, err := x.FindRename(99, 100, testRoot, "b.txt", true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Edge{
		From: Path{Root: testRoot, RelativePath: "a.txt"},
		To:   Path{Root: testRoot, RelativePath: "b.txt"},
	}, edge)

	edge2, ok, err := x.FindRename(99, 100, testRoot, "a.txt", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, edge, edge2)

	_, ok, err = x.FindRename(99, 100, testRoot, "b.txt", false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = x.FindRename(98, 100, testRoot, "b.txt", true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = x.FindRename(99, 100, testRoot, "c.txt", true)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = x.PathID(testRoot, "c.txt")
	require.NoError(t, err)
	assert.False(t, ok, "lookups must not intern c.txt")
}

func TestIndexUpdateAndHistory(t *testing.T) {
	x := openIndex(t, t.TempDir())
	defer x.Dispose()

	root := Commit{ID: 1, Root: testRoot, Changes: []ParentChanges{{
		Modified: []Modification{{Path: "main.go", Type: ChangeCreated}},
	}}}
	edit := Commit{ID: 2, Root: testRoot, Parents: []int32{1}, Changes: []ParentChanges{{
		Modified: []Modification{{Path: "main.go", Type: ChangeModified}, {Path: "util.go", Type: ChangeCreated}},
	}}}
	merge := Commit{ID: 3, Root: testRoot, Parents: []int32{2, 1}, Changes: []ParentChanges{
		{},
		{Modified: []Modification{{Path: "util.go", Type: ChangeCreated}}},
	}}

	for _, c := range []Commit{root, edit, merge} {
		updated, err := x.Update(c)
		require.NoError(t, err)
		assert.True(t, updated)
	}

	// Indexing a commit again is a no-op.
	updated, err := x.Update(edit)
	require.NoError(t, err)
	assert.False(t, updated)

	assert.Equal(t, []history{
		{Commit: 1, Kinds: []ChangeKind{Added}},
		{Commit: 2, Kinds: []ChangeKind{Modified}},
	}, collectHistory(t, x, "main.go"))
	assert.Equal(t, []history{
		{Commit: 2, Kinds: []ChangeKind{Added}},
		{Commit: 3, Kinds: []ChangeKind{NotChanged, Added}},
	}, collectHistory(t, x, "util.go"))
	assert.Empty(t, collectHistory(t, x, "never.go"))

	var first []int32
	require.NoError(t, x.IterateCommits(testRoot, "main.go", func(_ []ChangeKind, commit int32) bool {
		first = append(first, commit)
		return false
	}))
	assert.Equal(t, []int32{1}, first)

	mainID, ok, err := x.PathID(testRoot, "main.go")
	require.NoError(t, err)
	require.True(t, ok)
	utilID, ok, err := x.PathID(testRoot, "util.go")
	require.NoError(t, err)
	require.True(t, ok)

	ids, ok, err := x.CommitPaths(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int32{mainID, utilID}, ids)

	_, ok, err = x.CommitPaths(42)
	require.NoError(t, err)
	assert.False(t, ok)

	var listed []string
	require.NoError(t, x.RangePaths(func(_ int32, p Path) bool {
		listed = append(listed, p.RelativePath)
		return true
	}))
	// Queries leave unknown paths uninterned.
	assert.Equal(t, []string{"main.go", "util.go"}, listed)
	_, ok, err = x.PathID(testRoot, "never.go")
	require.NoError(t, err)
	assert.False(t, ok)

	indexed, err := x.IsIndexed(3)
	require.NoError(t, err)
	assert.True(t, indexed)

	stats, err := x.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Paths: 2, Commits: 3, RenameEdges: 0}, stats)
}

func TestIndexZeroParentCommit(t *testing.T) {
	x := openIndex(t, t.TempDir())
	defer x.Dispose()

	_, err := x.Update(Commit{ID: 1, Root: testRoot, Changes: []ParentChanges{{
		Modified: []Modification{{Path: "init.txt", Type: ChangeCreated}},
	}}})
	require.NoError(t, err)

	assert.Equal(t, []history{{Commit: 1, Kinds: []ChangeKind{Added}}}, collectHistory(t, x, "init.txt"))
}

func TestIndexPersistence(t *testing.T) {
	dir := t.TempDir()
	x := openIndex(t, dir)

	enc := x.PathsEncoder()
	id := enc.Encode(testRoot, "docs/readme.md", false)
	require.NotZero(t, id)
	assert.Equal(t, id, enc.Encode(testRoot, "docs/readme.md", false))
	otherID := enc.Encode("/other", "docs/readme.md", false)
	assert.NotEqual(t, id, otherID)

	_, err := x.Update(Commit{ID: 7, Root: testRoot, Parents: []int32{6}, Changes: []ParentChanges{{
		Renames:  []Rename{{From: "docs/readme.md", To: "README.md"}},
		Modified: []Modification{{Path: "main.go", Type: ChangeModified}},
	}}})
	require.NoError(t, err)
	assert.True(t, x.IsDirty())
	require.NoError(t, x.Flush())
	assert.False(t, x.IsDirty())
	x.Dispose()

	x = openIndex(t, dir)
	defer x.Dispose()

	assert.Equal(t, id, x.PathsEncoder().Encode(testRoot, "docs/readme.md", true))
	p, ok, err := x.Path(otherID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Path{Root: "/other", RelativePath: "docs/readme.md"}, p)

	assert.Equal(t, []history{{Commit: 7, Kinds: []ChangeKind{Modified}}}, collectHistory(t, x, "main.go"))

	edge, ok, err := x.FindRename(6, 7, testRoot, "README.md", true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "docs/readme.md", edge.From.RelativePath)

	indexed, err := x.IsIndexed(7)
	require.NoError(t, err)
	assert.True(t, indexed)
}

func TestIndexEncoderReportsFailures(t *testing.T) {
	var reported []error
	x := openIndex(t, t.TempDir(), WithErrorHandler(func(source Source, err error) {
		assert.Equal(t, SourceIndex, source)
		reported = append(reported, err)
	}))
	defer x.Dispose()

	assert.Equal(t, pmap.NullID, x.PathsEncoder().Encode("/unknown", "a", false))
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], ErrUnknownRoot)

	// A path under an unknown root is skipped; the rest of the commit is kept.
	_, err := x.Update(Commit{ID: 1, Root: "/unknown", Changes: []ParentChanges{{
		Modified: []Modification{{Path: "a", Type: ChangeCreated}},
	}}})
	require.NoError(t, err)
	assert.Len(t, reported, 2)
}

func TestIndexRootsChanged(t *testing.T) {
	dir := t.TempDir()
	x, err := Open(dir, []string{"/b", "/a"})
	require.NoError(t, err)
	x.Dispose()

	// Order does not matter.
	x, err = Open(dir, []string{"/a", "/b", "/a"})
	require.NoError(t, err)
	x.Dispose()

	_, err = Open(dir, []string{"/a", "/c"})
	require.ErrorIs(t, err, ErrRootsChanged)
}

func TestIndexSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	x := openIndex(t, dir, WithBackend(BackendSQLite))

	_, err := x.Update(Commit{ID: 2, Root: testRoot, Parents: []int32{1}, Changes: []ParentChanges{{
		Renames: []Rename{{From: "old.go", To: "new.go"}},
	}}})
	require.NoError(t, err)
	require.NoError(t, x.Flush())

	stats, err := x.Stats()
	require.NoError(t, err)
	assert.Equal(t, -1, stats.RenameEdges)
	x.Dispose()

	x = openIndex(t, dir, WithBackend(BackendSQLite))
	defer x.Dispose()
	edge, ok, err := x.FindRename(1, 2, testRoot, "old.go", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new.go", edge.To.RelativePath)
}

func TestIndexLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	x := openIndex(t, dir)

	x.Dispose()
	x.Dispose()

	_, err := x.Update(Commit{ID: 1, Root: testRoot})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, x.Flush(), ErrClosed)
	_, _, err = x.FindRename(1, 2, testRoot, "a", true)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, x.CloseAndDelete(), ErrClosed)

	x = openIndex(t, dir)
	_, err = x.Update(Commit{ID: 1, Root: testRoot, Changes: []ParentChanges{{
		Modified: []Modification{{Path: "a", Type: ChangeCreated}},
	}}})
	require.NoError(t, err)
	require.NoError(t, x.CloseAndDelete())
	assert.NoDirExists(t, dir)

	x = openIndex(t, dir)
	defer x.Dispose()
	indexed, err := x.IsIndexed(1)
	require.NoError(t, err)
	assert.False(t, indexed)
}

func TestIndexCompact(t *testing.T) {
	x := openIndex(t, t.TempDir())
	defer x.Dispose()

	for i := range int32(5) {
		_, err := x.Update(Commit{ID: i + 1, Root: testRoot, Parents: []int32{i}, Changes: []ParentChanges{{
			Modified: []Modification{{Path: "hot.go", Type: ChangeModified}},
		}}})
		require.NoError(t, err)
	}

	stats, err := x.Compact(t.Context())
	require.NoError(t, err)
	assert.Less(t, stats.BytesAfter, stats.BytesBefore)
	assert.Len(t, collectHistory(t, x, "hot.go"), 5)
}
