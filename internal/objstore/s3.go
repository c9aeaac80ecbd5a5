package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tabschema/internal/config"
)

var _ Opener = (*S3Reader)(nil)

// S3Reader reads objects from S3-compatible storage using static
// credentials and path-style addressing.
type S3Reader struct {
	client *s3.Client
}

// NewS3Reader creates a reader from the S3 settings in cfg. S3_ENDPOINT may
// be a bare host (https is assumed) or a full URL.
func NewS3Reader(cfg *config.Config) (*S3Reader, error) {
	if !cfg.HasS3Config() {
		return nil, fmt.Errorf("S3 config is incomplete: s3:// URIs require S3_KEY_ID, S3_SECRET, S3_ENDPOINT and S3_REGION")
	}

	endpoint := *cfg.S3Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	client := s3.New(s3.Options{
		Region: *cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			*cfg.S3KeyID, *cfg.S3Secret, "",
		),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
	})
	return &S3Reader{client: client}, nil
}

// Open implements Opener for s3://bucket/key URIs.
func (r *S3Reader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", uri, err)
	}
	return out.Body, nil
}

// ParseS3URI extracts bucket and key from an "s3://bucket/path/to/file" URI.
func ParseS3URI(uri string) (bucket, key string, err error) {
	return splitBucketKey(uri, "s3")
}
