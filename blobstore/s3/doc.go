// Package s3 stores blobs in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("vcslog/main"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	err = backup.Snapshot(ctx, dir, store)
//
// Reads are ranged GETs. Create streams through the upload manager and
// switches to a multipart upload for large files. Put sends a CRC32C
// checksum unless disabled in UploadConfig.
//
// S3 has no compare-and-swap, so concurrent writers publishing CURRENT can
// overwrite each other. DDBCommitStore serializes CURRENT through DynamoDB
// conditional writes.
package s3
