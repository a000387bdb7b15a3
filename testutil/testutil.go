package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/pathindex"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	// Normalization constant (harmonic number with exponent s).
	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Inverse transform on a uniform sample.
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// HistoryConfig shapes a generated commit history.
type HistoryConfig struct {
	Root    string
	Commits int
	// Paths is the number of distinct files changes are drawn from.
	Paths int
	// MaxChanges bounds the modifications per parent. Default: 4.
	MaxChanges int
	// MergeRate is the share of commits with a second parent.
	MergeRate float64
	// RenameRate is the chance that a change set also renames a file.
	RenameRate float64
	// Skew is the Zipf exponent for picking paths; 0 picks uniformly.
	Skew float64
}

// Hash returns the hash History assigns to the i-th commit.
func Hash(i int) string {
	return fmt.Sprintf("%040x", i+1)
}

// PathName returns the relative path of the i-th generated file.
func PathName(i int) string {
	return fmt.Sprintf("pkg%02d/file%04d.go", i%16, i)
}

var changeTypes = [...]pathindex.ChangeType{
	pathindex.ChangeModified,
	pathindex.ChangeModified,
	pathindex.ChangeModified,
	pathindex.ChangeCreated,
	pathindex.ChangeDeleted,
}

// History generates cfg.Commits commits in topological order. Every commit
// but the first has the previous commit as its first parent; merges add a
// random older commit as the second parent.
func (r *RNG) History(cfg HistoryConfig) []vcslog.CommitRecord {
	if cfg.MaxChanges <= 0 {
		cfg.MaxChanges = 4
	}
	if cfg.Paths <= 0 {
		cfg.Paths = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	commits := make([]vcslog.CommitRecord, cfg.Commits)
	for i := range commits {
		c := vcslog.CommitRecord{Hash: Hash(i), Root: cfg.Root}
		if i > 0 {
			c.Parents = append(c.Parents, Hash(i-1))
		}
		if i > 1 && r.rand.Float64() < cfg.MergeRate {
			c.Parents = append(c.Parents, Hash(r.rand.Intn(i-1)))
		}

		for range max(1, len(c.Parents)) {
			c.Changes = append(c.Changes, r.changesLocked(cfg, i == 0))
		}
		commits[i] = c
	}
	return commits
}

func (r *RNG) changesLocked(cfg HistoryConfig, initial bool) pathindex.ParentChanges {
	var pc pathindex.ParentChanges
	seen := make(map[string]struct{})

	if !initial && r.rand.Float64() < cfg.RenameRate {
		from := PathName(r.pickLocked(cfg))
		to := "moved/" + from
		pc.Renames = append(pc.Renames, pathindex.Rename{From: from, To: to})
		seen[from] = struct{}{}
		seen[to] = struct{}{}
	}

	n := 1 + r.rand.Intn(cfg.MaxChanges)
	for range n {
		path := PathName(r.pickLocked(cfg))
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		t := pathindex.ChangeCreated
		if !initial {
			t = changeTypes[r.rand.Intn(len(changeTypes))]
		}
		pc.Modified = append(pc.Modified, pathindex.Modification{Path: path, Type: t})
	}
	return pc
}

func (r *RNG) pickLocked(cfg HistoryConfig) int {
	if cfg.Skew > 0 {
		return r.zipfLocked(cfg.Paths, cfg.Skew)
	}
	return r.rand.Intn(cfg.Paths)
}
