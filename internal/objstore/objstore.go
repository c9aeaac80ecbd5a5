// Package objstore opens schema documents from local disk and object
// storage (S3-compatible, Google Cloud Storage, Azure Blob Storage).
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"tabschema/internal/config"
)

// Opener opens the object named by uri for reading.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, uri string) (io.ReadCloser, error)

// Open calls f(ctx, uri).
func (f OpenerFunc) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return f(ctx, uri)
}

// Scheme returns the lower-cased URI scheme of uri, or "" for a plain path.
// Windows drive letters are not treated as schemes.
func Scheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(uri[:i])
}

// LocalReader opens plain paths and file:// URIs from the local filesystem.
type LocalReader struct{}

// Open implements Opener.
func (LocalReader) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path, err := LocalPath(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// LocalPath converts a plain path or file:// URI to a filesystem path.
func LocalPath(uri string) (string, error) {
	switch Scheme(uri) {
	case "":
		return uri, nil
	case "file":
		u, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("parse file URI %q: %w", uri, err)
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", fmt.Errorf("file URI %q names remote host %q", uri, u.Host)
		}
		if u.Path == "" {
			return "", fmt.Errorf("empty path in file URI %q", uri)
		}
		return u.Path, nil
	default:
		return "", fmt.Errorf("not a local path: %q", uri)
	}
}

// Router dispatches Open calls by URI scheme. Cloud readers are built on
// first use from the configuration, so credentials are only required for
// the schemes actually used.
type Router struct {
	cfg *config.Config

	mu      sync.Mutex
	openers map[string]Opener
}

// NewRouter creates a Router. A nil cfg disables every cloud scheme.
func NewRouter(cfg *config.Config) *Router {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Router{
		cfg:     cfg,
		openers: map[string]Opener{"local": LocalReader{}},
	}
}

// Register overrides the reader used for a backend: "local", "s3", "gs" or
// "azure".
func (r *Router) Register(backend string, o Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[backend] = o
}

// Open implements Opener.
func (r *Router) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	backend, err := backendFor(uri)
	if err != nil {
		return nil, err
	}
	o, err := r.opener(ctx, backend)
	if err != nil {
		return nil, err
	}
	return o.Open(ctx, uri)
}

func (r *Router) opener(ctx context.Context, backend string) (Opener, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.openers[backend]; ok {
		return o, nil
	}

	var (
		o   Opener
		err error
	)
	switch backend {
	case "s3":
		o, err = NewS3Reader(r.cfg)
	case "gs":
		if !r.cfg.HasGCSConfig() {
			return nil, fmt.Errorf("gs:// URIs require GCS_KEY_FILE")
		}
		o, err = NewGCSReader(ctx, r.cfg.GCSKeyFile)
	case "azure":
		if !r.cfg.HasAzureConfig() {
			return nil, fmt.Errorf("Azure URIs require AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY")
		}
		o, err = NewAzureReader(r.cfg.AzureAccountName, r.cfg.AzureAccountKey)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	r.openers[backend] = o
	return o, nil
}

func backendFor(uri string) (string, error) {
	switch s := Scheme(uri); s {
	case "", "file":
		return "local", nil
	case "s3", "gs":
		return s, nil
	case "az", "abfss":
		return "azure", nil
	case "https":
		if u, err := url.Parse(uri); err == nil && strings.HasSuffix(u.Host, ".blob.core.windows.net") {
			return "azure", nil
		}
		return "", fmt.Errorf("unsupported https location %q", uri)
	default:
		return "", fmt.Errorf("unsupported URI scheme %q in %q", s, uri)
	}
}

// splitBucketKey parses "<scheme>://bucket/key" URIs.
func splitBucketKey(uri, scheme string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse %s path %q: %w", scheme, uri, err)
	}
	if u.Scheme != scheme {
		return "", "", fmt.Errorf("expected %s:// scheme, got %q in %q", scheme, u.Scheme, uri)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket in %s path %q", scheme, uri)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty key in %s path %q", scheme, uri)
	}
	return bucket, key, nil
}
