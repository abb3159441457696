package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage keeps scan snapshots in a bucket. An empty bucket argument on a call
// means the default bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
}

func NewS3Storage(client *s3.Client, bucket string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket}
}

func (s *S3Storage) bucketOr(bucket string) string {
	if bucket == "" {
		return s.bucket
	}
	return bucket
}

func (s *S3Storage) Upload(ctx context.Context, bucket, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketOr(bucket)),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}
	return key, nil
}

func (s *S3Storage) GetURL(ctx context.Context, bucket, key string) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	presigned, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketOr(bucket)),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(time.Hour*24))
	if err != nil {
		return "", fmt.Errorf("failed to presign s3 url: %w", err)
	}
	return presigned.URL, nil
}
