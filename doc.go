// Package vcslog records which files every commit of a repository changed
// and answers per-path history and rename queries from disk.
//
// # Quick Start
//
//	l, err := vcslog.Open("./data", []string{"/src/repo"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	_, err = l.IndexCommit(ctx, vcslog.CommitRecord{
//	    Hash:    "b3f1",
//	    Root:    "/src/repo",
//	    Parents: []string{"9a0c"},
//	    Changes: []pathindex.ParentChanges{{
//	        Renames:  []pathindex.Rename{{From: "old.go", To: "new.go"}},
//	        Modified: []pathindex.Modification{{Path: "main.go", Type: pathindex.ChangeModified}},
//	    }},
//	})
//
//	history, _ := l.History(ctx, "/src/repo", "main.go")
//	edge, found, _ := l.FindRename(ctx, "9a0c", "b3f1", "/src/repo", "new.go", true)
//
// # Change Kinds
//
// Every indexed commit stores, per touched path, one change kind per parent:
// MODIFIED, NOT_CHANGED, ADDED or REMOVED. A merge that took a file from
// its second parent records NOT_CHANGED for that parent and MODIFIED for
// the first. A path renamed away is REMOVED, its new name ADDED, and the
// rename itself is kept so history can follow it.
//
// # Durability Model
//
// Mutations are appended to per-map logs and become durable on Flush or
// Close, or on every write with WithDurability(pmap.DurabilitySync):
//
//	l.IndexCommit(ctx, rec) // appended, buffered
//	l.Flush()               // durable after this
//
// Failures of single paths while indexing are reported to the error
// handler (WithErrorHandler) and skipped so the remaining changes of the
// commit are still recorded.
//
// # Storage Layout
//
//	<dir>/commits/   commit hash enumerator
//	<dir>/paths/     path index (see package pathindex)
//
// Compact reclaims space held by overwritten records. Backup uploads a
// snapshot of the directory to any blobstore.BlobStore and Restore brings
// it back.
package vcslog
