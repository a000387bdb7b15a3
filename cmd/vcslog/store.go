package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/vcslog/blobstore"
	miniostore "github.com/hupe1980/vcslog/blobstore/minio"
	s3store "github.com/hupe1980/vcslog/blobstore/s3"
	"github.com/hupe1980/vcslog/internal/config"
)

// openStore builds the blob store of the configured backup target.
func openStore(ctx context.Context, c config.BackupConfig) (blobstore.BlobStore, error) {
	switch c.Target {
	case config.TargetLocal:
		if c.Path == "" {
			return nil, errors.New("backup: local target needs a path")
		}
		return blobstore.NewLocalStore(c.Path), nil

	case config.TargetS3:
		if c.Bucket == "" {
			return nil, errors.New("backup: s3 target needs a bucket")
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if c.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(c.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		upload := s3store.DefaultUploadConfig()
		if c.PartSize > 0 {
			upload.PartSize = c.PartSize
		}
		store := s3store.NewStore(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if c.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.Endpoint)
				o.UsePathStyle = true
			}
		}), c.Bucket, s3store.WithPrefix(c.Prefix), s3store.WithUploadConfig(upload))
		if c.Table == "" {
			return store, nil
		}
		return s3store.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), c.Table, ""), nil

	case config.TargetMinio:
		if c.Endpoint == "" || c.Bucket == "" {
			return nil, errors.New("backup: minio target needs an endpoint and a bucket")
		}
		store, err := miniostore.New(miniostore.Config{
			Endpoint:  c.Endpoint,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Region:    c.Region,
			Secure:    c.Secure,
		}, c.Bucket, c.Prefix)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("backup: ensure bucket %s: %w", c.Bucket, err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("backup: unknown target %q", c.Target)
}
