package objstore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var _ Opener = (*GCSReader)(nil)

// GCSReader reads objects from Google Cloud Storage.
type GCSReader struct {
	client *storage.Client
}

// NewGCSReader creates a reader authenticated with a service account key
// file.
func NewGCSReader(ctx context.Context, keyFile string) (*GCSReader, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("gcs key file is required")
	}
	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, keyFile))
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSReader{client: client}, nil
}

// Open implements Opener for gs://bucket/key URIs.
func (r *GCSReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	rc, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", uri, err)
	}
	return rc, nil
}

// Close releases the underlying client.
func (r *GCSReader) Close() error {
	return r.client.Close()
}

// ParseGCSURI extracts bucket and key from a "gs://bucket/path/to/file" URI.
func ParseGCSURI(uri string) (bucket, key string, err error) {
	return splitBucketKey(uri, "gs")
}
