// Package pathindex records which paths every commit touched and how.
//
// An Index interns (root, relative path) pairs to dense int32 path ids,
// classifies every touched path once per parent of a commit, and stores
// rename edges between a parent and a child commit. Queries run the other
// way: from a path to the commits that touched it, or from a commit pair
// and a path to the rename that produced it.
//
// # Storage
//
// An Index owns one directory holding four persistent maps:
//
//	paths-ids/    path <-> path id (pmap.Enumerator)
//	renames-map/  (parent, child) -> [(old id, new id)]
//	commits/      commit id -> roaring bitmap of touched path ids
//	postings/     path id -> appended (commit id, kinds) records
//
// # Failures
//
// Storage errors from queries, Flush and Update are returned. Failures
// while mapping a single path or a single rename set during ingestion are
// reported to the ErrorHandler and skipped, so one bad path never aborts a
// commit.
package pathindex
