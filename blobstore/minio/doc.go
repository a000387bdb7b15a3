// Package minio stores blobs in MinIO or any other S3-compatible server
// (Ceph, Garage, SeaweedFS) through the MinIO Go client.
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "backups", "vcslog/main")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := store.EnsureBucket(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = backup.Snapshot(ctx, dir, store)
//
// No AWS SDK is involved, which keeps air-gapped deployments simple.
package minio
