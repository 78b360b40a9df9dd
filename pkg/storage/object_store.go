package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectExists is returned by Upload when upsert is false and the key is taken.
var ErrObjectExists = errors.New("object already exists")

// ObjectStore uploads public images (item photos, avatars).
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string, upsert bool) error
	PublicURL(bucket, key string) string
}

// MinioStore implements ObjectStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client    *minio.Client
	publicURL string
}

// NewMinioStore connects to MinIO and ensures every bucket exists with a public-read policy.
func NewMinioStore(endpoint, accessKey, secretKey, publicURL string, useSSL bool, buckets ...string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, bucket := range buckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy %s: %w", bucket, err)
		}
	}
	return &MinioStore{client: client, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Upload puts an object. Without upsert an existing key is left untouched.
func (m *MinioStore) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string, upsert bool) error {
	if !upsert {
		_, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
		if err == nil {
			return ErrObjectExists
		}
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return fmt.Errorf("stat object: %w", err)
		}
	}
	_, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// PublicURL returns the unauthenticated URL of an object in a public bucket.
func (m *MinioStore) PublicURL(bucket, key string) string {
	return PublicURL(m.publicURL, bucket, key)
}

// PublicURL joins a base URL, bucket and key in path-style addressing.
func PublicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}

func publicReadPolicy(bucket string) string {
	return `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::` + bucket + `/*"]}]}`
}
