package vcslog_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/pathindex"
)

// Example_history indexes two commits and prints the history of a file.
func Example_history() {
	dir, err := os.MkdirTemp("", "vcslog-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	l, err := vcslog.Open(dir, []string{"/src/repo"})
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	ctx := context.Background()
	commits := []vcslog.CommitRecord{
		{Hash: "a1", Root: "/src/repo", Changes: []pathindex.ParentChanges{{
			Modified: []pathindex.Modification{{Path: "README.md", Type: pathindex.ChangeCreated}},
		}}},
		{Hash: "b2", Root: "/src/repo", Parents: []string{"a1"}, Changes: []pathindex.ParentChanges{{
			Modified: []pathindex.Modification{{Path: "README.md", Type: pathindex.ChangeModified}},
		}}},
	}
	for _, c := range commits {
		if _, err := l.IndexCommit(ctx, c); err != nil {
			log.Fatal(err)
		}
	}

	history, err := l.History(ctx, "/src/repo", "README.md")
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range history {
		fmt.Println(e.Commit, e.Kinds)
	}
	// Output:
	// a1 [ADDED]
	// b2 [MODIFIED]
}

// Example_rename follows a rename between two commits.
func Example_rename() {
	dir, err := os.MkdirTemp("", "vcslog-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	l, err := vcslog.Open(dir, []string{"/src/repo"})
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	ctx := context.Background()
	_, err = l.IndexCommit(ctx, vcslog.CommitRecord{
		Hash:    "b2",
		Root:    "/src/repo",
		Parents: []string{"a1"},
		Changes: []pathindex.ParentChanges{{
			Renames: []pathindex.Rename{{From: "util.go", To: "strings.go"}},
		}},
	})
	if err != nil {
		log.Fatal(err)
	}

	edge, found, err := l.FindRename(ctx, "a1", "b2", "/src/repo", "strings.go", true)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(found, edge.From, "->", edge.To)
	// Output: true /src/repo/util.go -> /src/repo/strings.go
}
