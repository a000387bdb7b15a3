package integration_test

import (
	"context"
	"sync"
	"testing"

	"github.com/hupe1980/vcslog/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentIndexAndQuery(t *testing.T) {
	l := open(t, t.TempDir())
	defer l.Close()

	commits := generate(6, 300)
	ctx := context.Background()

	done := make(chan struct{})
	errs := make(chan error, 8)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for _, c := range commits {
			if _, err := l.IndexCommit(ctx, c); err != nil {
				errs <- err
				return
			}
		}
	}()

	for r := range 4 {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := testutil.NewRNG(seed)
			for {
				select {
				case <-done:
					return
				default:
				}
				path := testutil.PathName(rng.Zipf(pathCount, 1.1))
				if _, err := l.History(ctx, root, path); err != nil {
					errs <- err
					return
				}
				if _, err := l.Stats(); err != nil {
					errs <- err
					return
				}
			}
		}(int64(r))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, len(commits), stats.IndexedCommits)
}

func TestConcurrentIndexSameCommit(t *testing.T) {
	l := open(t, t.TempDir())
	defer l.Close()

	commit := generate(7, 1)[0]
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updated int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.IndexCommit(ctx, commit)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				updated++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, updated)
}
