package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options for connecting the result mirror.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Prefix is prepended to every object key, e.g. "analysis_results".
	Prefix string
}

// Store mirrors persisted analysis files into a MinIO/S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// New connects and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &Store{client: cli, bucketName: opts.Bucket, prefix: strings.Trim(opts.Prefix, "/")}, nil
}

// Upload copies localPath to <prefix>/<key> and returns the object URL.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	objectKey := ObjectKey(s.prefix, key)
	_, err := s.client.FPutObject(ctx, s.bucketName, objectKey, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return "", err
	}

	// URL publik (jika bucket public), kalau private harus generate presigned URL
	u := *s.client.EndpointURL()
	u.Path = path.Join("/", s.bucketName, objectKey)
	return u.String(), nil
}

// ObjectKey joins prefix and key with forward slashes.
func ObjectKey(prefix, key string) string {
	key = strings.TrimLeft(filepath.ToSlash(key), "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// ContentType picks the object content type from the result file extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
