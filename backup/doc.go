// Package backup copies a storage directory to a blob store and back.
//
// A snapshot is written as one generation:
//
//	<generation>/<relative path>.zst   zstd-compressed file contents
//	<generation>/MANIFEST              JSON list of files with sizes and CRC32C
//	CURRENT                            name of the live generation
//
// CURRENT is written last, so a reader never sees a partial generation.
// The directory must not be written to while a snapshot runs; flush the
// index first. Restore verifies every file against the manifest checksum.
package backup
