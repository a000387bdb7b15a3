package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/vcslog/pathindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commitsYAML = `commits:
  - hash: c1
    root: /src/repo
    changes:
      - modified:
          - {path: main.go, type: created}
          - {path: old.go, type: created}
  - hash: c2
    root: /src/repo
    parents: [c1]
    changes:
      - renames:
          - {from: old.go, to: new.go}
        modified:
          - {path: main.go}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, args)
	return out
}

func writeCommits(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(commitsYAML), 0o644))
	return path
}

func TestCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	input := writeCommits(t)
	flags := []string{"--dir", dir, "--root", "/src/repo"}
	cli := func(args ...string) string {
		return mustRun(t, append(args, flags...)...)
	}

	assert.Equal(t, "indexed 2 commits, 0 already indexed\n", cli("ingest", input))
	assert.Equal(t, "indexed 0 commits, 2 already indexed\n", cli("ingest", input))

	assert.Equal(t, "c1\tADDED\nc2\tMODIFIED\n", cli("history", "/src/repo", "main.go"))
	assert.Equal(t, "c1\tADDED\nc2\tREMOVED\n", cli("history", "/src/repo", "old.go"))
	assert.Empty(t, cli("history", "/src/repo", "never.go"))

	assert.Equal(t, "/src/repo/old.go -> /src/repo/new.go\n", cli("rename", "c1", "c2", "/src/repo", "old.go"))
	assert.Equal(t, "/src/repo/old.go -> /src/repo/new.go\n", cli("rename", "--child", "c1", "c2", "/src/repo", "new.go"))
	assert.Equal(t, "no rename\n", cli("rename", "c1", "c2", "/src/repo", "main.go"))

	assert.Equal(t, "/src/repo\tc1\n/src/repo\tc2\n", cli("keys", "commits"))
	paths := cli("keys")
	assert.Contains(t, paths, "/src/repo\tmain.go\n")
	assert.Contains(t, paths, "/src/repo\tnew.go\n")
	assert.NotContains(t, paths, "never.go")

	stats := cli("stats")
	assert.Contains(t, stats, "commits:         2\n")
	assert.Contains(t, stats, "indexed commits: 2\n")
	assert.Contains(t, stats, "rename edges:    1\n")

	assert.Contains(t, cli("compact"), "compacted ")
}

func TestBackupRestoreCommands(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	dst := filepath.Join(t.TempDir(), "dst")
	target := filepath.Join(t.TempDir(), "backups")

	mustRun(t, "ingest", writeCommits(t), "--dir", src, "--root", "/src/repo")

	out := mustRun(t, "backup", "--path", target, "--prune", "--dir", src, "--root", "/src/repo")
	assert.Contains(t, out, "generation ")
	assert.Contains(t, out, "pruned 0 blobs\n")

	out = mustRun(t, "restore", "--path", target, "--dir", dst)
	assert.Contains(t, out, "restored generation ")

	assert.Equal(t, "c1\tADDED\nc2\tMODIFIED\n",
		mustRun(t, "history", "/src/repo", "main.go", "--dir", dst, "--root", "/src/repo"))

	// A second restore into the now populated directory fails.
	_, err := run(t, "restore", "--path", target, "--dir", dst)
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "backups")
	cfg := "roots: [/src/repo]\nbackend: sqlite\nbackup:\n  path: " + target + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vcslog.yaml"), []byte(cfg), 0o644))

	mustRun(t, "ingest", writeCommits(t), "--dir", dir)
	assert.Contains(t, mustRun(t, "backup", "--dir", dir), "generation ")

	stats := mustRun(t, "stats", "--dir", dir)
	assert.Contains(t, stats, "indexed commits: 2\n")
	assert.NotContains(t, stats, "rename edges")
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"no roots", []string{"stats", "--dir", dir}},
		{"unknown root", []string{"history", "/elsewhere", "main.go", "--dir", dir, "--root", "/src/repo"}},
		{"missing args", []string{"rename", "c1", "c2", "--dir", dir, "--root", "/src/repo"}},
		{"invalid keys kind", []string{"keys", "branches", "--dir", dir, "--root", "/src/repo"}},
		{"missing input", []string{"ingest", filepath.Join(dir, "none.yaml"), "--dir", dir, "--root", "/src/repo"}},
		{"bad backend", []string{"stats", "--dir", dir, "--root", "/src/repo", "--backend", "rocksdb"}},
		{"missing config", []string{"stats", "--config", filepath.Join(dir, "none.yaml"), "--dir", dir}},
		{"local target without path", []string{"backup", "--dir", dir, "--root", "/src/repo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseCommits(t *testing.T) {
	recs, err := parseCommits([]byte(commitsYAML))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "c2", recs[1].Hash)
	assert.Equal(t, []string{"c1"}, recs[1].Parents)
	assert.Equal(t, []pathindex.ParentChanges{{
		Renames:  []pathindex.Rename{{From: "old.go", To: "new.go"}},
		Modified: []pathindex.Modification{{Path: "main.go", Type: pathindex.ChangeModified}},
	}}, recs[1].Changes)
	assert.Equal(t, pathindex.ChangeCreated, recs[0].Changes[0].Modified[0].Type)

	_, err = parseCommits([]byte("commits:\n  - hash: c1\n    author: someone\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = parseCommits([]byte("commits:\n  - hash: c1\n    changes:\n      - modified:\n          - {path: a, type: copied}\n"))
	assert.Error(t, err)
}
