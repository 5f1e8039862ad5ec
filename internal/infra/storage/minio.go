package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
)

// Options for the MinIO archive.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Store keeps raw model responses in a bucket, one object per review.
type Store struct {
	client     *minio.Client
	bucketName string
}

var _ reviews.Archive = (*Store)(nil)

// New buat koneksi MinIO dan pastikan bucket ada
func New(ctx context.Context, o Options) (*Store, error) {
	cli, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, o.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", o.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, o.Bucket, minio.MakeBucketOptions{Region: o.Region}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", o.Bucket, err)
		}
	}
	return &Store{client: cli, bucketName: o.Bucket}, nil
}

// ObjectKey is where the raw response of a review is written.
func ObjectKey(id reviews.ID) string {
	return fmt.Sprintf("reviews/%s/response.txt", id)
}

// Put overwrites the archived response for id.
func (s *Store) Put(ctx context.Context, id reviews.ID, raw string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, ObjectKey(id), strings.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	return err
}

// Ping checks the bucket is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
