// Package testutil provides testing utilities for vcslog.
//
// This package is intended for use in tests and benchmarks only.
// It generates deterministic commit histories with a skewed choice of
// touched paths, the way real repositories concentrate changes on a few
// hot files.
//
// # Generated Histories
//
//	rng := testutil.NewRNG(seed)
//	commits := rng.History(testutil.HistoryConfig{
//		Root:    "/src/repo",
//		Commits: 1000,
//		Paths:   500,
//	})
//	for _, c := range commits {
//		l.IndexCommit(ctx, c)
//	}
package testutil
