package integration_test

import (
	"context"
	"testing"

	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/pathindex"
	"github.com/hupe1980/vcslog/testutil"
	"github.com/stretchr/testify/require"
)

const root = "/src/repo"

const pathCount = 60

func generate(seed int64, n int) []vcslog.CommitRecord {
	return testutil.NewRNG(seed).History(testutil.HistoryConfig{
		Root:       root,
		Commits:    n,
		Paths:      pathCount,
		MergeRate:  0.1,
		RenameRate: 0.2,
		Skew:       1.1,
	})
}

func open(t *testing.T, dir string, opts ...vcslog.Option) *vcslog.Log {
	t.Helper()
	l, err := vcslog.Open(dir, []string{root}, opts...)
	require.NoError(t, err)
	return l
}

func ingest(t *testing.T, l *vcslog.Log, commits []vcslog.CommitRecord) {
	t.Helper()
	for _, c := range commits {
		_, err := l.IndexCommit(context.Background(), c)
		require.NoError(t, err, c.Hash)
	}
}

// snapshot maps every generated path to its commits and kinds.
func snapshot(t *testing.T, l *vcslog.Log) map[string]map[string][]pathindex.ChangeKind {
	t.Helper()
	out := make(map[string]map[string][]pathindex.ChangeKind)
	for i := range pathCount {
		for _, path := range []string{testutil.PathName(i), "moved/" + testutil.PathName(i)} {
			entries, err := l.History(context.Background(), root, path)
			require.NoError(t, err)
			if len(entries) == 0 {
				continue
			}
			m := make(map[string][]pathindex.ChangeKind, len(entries))
			for _, e := range entries {
				m[e.Commit] = e.Kinds
			}
			out[path] = m
		}
	}
	return out
}
