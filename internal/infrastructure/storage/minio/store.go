// Package minio implements the document store on MinIO/S3.  Rendered
// regulatory documents are write-once; the key carries organization, period,
// and notice so nothing is ever overwritten in normal operation.
package minio

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/internal/domain/document"
	"github.com/vigiamx/satavisos/pkg/errors"
)

// Store implements document.Store.
type Store struct {
	client *minio.Client
	bucket string
}

var _ document.Store = (*Store)(nil)

// NewStore connects to the object store and ensures the bucket exists.
func NewStore(ctx context.Context, cfg config.MinioConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentStoreError, "connect to object store")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentStoreError, "check bucket").
			WithDetail("bucket=" + cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDocumentStoreError, "create bucket").
				WithDetail("bucket=" + cfg.Bucket)
		}
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the document and returns its key, size, and ETag checksum.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (*document.Stored, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentStoreError, "put document").
			WithDetail("key=" + key)
	}
	return &document.Stored{
		Key:      key,
		Size:     info.Size,
		Checksum: info.ETag,
	}, nil
}
