package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of the S3 client used by S3Fetcher.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads files stored under a key prefix in one bucket.
type S3Fetcher struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Fetcher creates a fetcher for objects at bucket/prefix+name.
func NewS3Fetcher(client ObjectGetter, bucket, prefix string) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket, prefix: prefix}
}

// Fetch opens the object body. The caller closes it.
func (f *S3Fetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	key := f.prefix + name
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get s3://%s/%s: %w", f.bucket, key, err)
	}
	return out.Body, nil
}
