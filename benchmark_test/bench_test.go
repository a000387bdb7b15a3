package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/pathindex"
	"github.com/hupe1980/vcslog/pmap"
	"github.com/hupe1980/vcslog/testutil"
)

const benchRoot = "/src/repo"

func benchHistory(n int) []vcslog.CommitRecord {
	return testutil.NewRNG(1).History(testutil.HistoryConfig{
		Root:       benchRoot,
		Commits:    n,
		Paths:      2000,
		MergeRate:  0.05,
		RenameRate: 0.1,
		Skew:       1.1,
	})
}

func openLog(b *testing.B, opts ...vcslog.Option) *vcslog.Log {
	b.Helper()
	l, err := vcslog.Open(b.TempDir(), []string{benchRoot}, opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = l.Close() })
	return l
}

func BenchmarkIngest_Async(b *testing.B) {
	benchmarkIngest(b, vcslog.WithDurability(pmap.DurabilityAsync))
}

func BenchmarkIngest_Sync(b *testing.B) {
	benchmarkIngest(b, vcslog.WithDurability(pmap.DurabilitySync))
}

func BenchmarkIngest_SQLite(b *testing.B) {
	benchmarkIngest(b, vcslog.WithBackend(pathindex.BackendSQLite))
}

func BenchmarkIngest_ZSTD(b *testing.B) {
	benchmarkIngest(b, vcslog.WithCompression(pmap.CompressionZSTD))
}

func benchmarkIngest(b *testing.B, opts ...vcslog.Option) {
	b.ReportAllocs()

	commits := benchHistory(b.N)
	l := openLog(b, opts...)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := l.IndexCommit(ctx, commits[i]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHistory(b *testing.B) {
	for _, cacheBytes := range []int64{0, 8 << 20} {
		name := "NoCache"
		if cacheBytes > 0 {
			name = "Cache"
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()

			l := openLog(b, vcslog.WithCacheSize(cacheBytes))
			ingest(b, l, benchHistory(2000))
			rng := testutil.NewRNG(2)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				path := testutil.PathName(rng.Zipf(2000, 1.1))
				if _, err := l.History(context.Background(), benchRoot, path); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkFindRename(b *testing.B) {
	b.ReportAllocs()

	commits := benchHistory(2000)
	l := openLog(b)
	ingest(b, l, commits)

	type query struct{ parent, child, path string }
	var queries []query
	for _, c := range commits {
		for i, pc := range c.Changes {
			for _, r := range pc.Renames {
				queries = append(queries, query{c.Parents[i], c.Hash, r.From})
			}
		}
	}
	if len(queries) == 0 {
		b.Skip("history has no renames")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q := queries[i%len(queries)]
		_, found, err := l.FindRename(context.Background(), q.parent, q.child, benchRoot, q.path, false)
		if err != nil {
			b.Fatal(err)
		}
		if !found {
			b.Fatalf("rename %s not found", q.path)
		}
	}
}

func ingest(b *testing.B, l *vcslog.Log, commits []vcslog.CommitRecord) {
	b.Helper()
	ctx := context.Background()
	for _, c := range commits {
		if _, err := l.IndexCommit(ctx, c); err != nil {
			b.Fatal(err)
		}
	}
}
