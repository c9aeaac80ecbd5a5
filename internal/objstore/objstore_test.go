package objstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabschema/internal/config"
)

func strPtr(s string) *string { return &s }

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"schema.yaml":          "",
		"/etc/schema.yaml":     "",
		`C:\schemas\x.yaml`:    "",
		"file:///tmp/x.yaml":   "file",
		"S3://bucket/key.yaml": "s3",
		"gs://b/k":             "gs",
		"abfss://c@a.dfs.core.windows.net/k": "abfss",
	}
	for in, want := range tests {
		assert.Equal(t, want, Scheme(in), in)
	}
}

func TestLocalPath(t *testing.T) {
	p, err := LocalPath("file:///tmp/schema.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/schema.yaml", p)

	p, err = LocalPath("relative/schema.yaml")
	require.NoError(t, err)
	assert.Equal(t, "relative/schema.yaml", p)

	_, err = LocalPath("file://otherhost/tmp/x")
	require.Error(t, err)

	_, err = LocalPath("s3://b/k")
	require.Error(t, err)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://lake/schemas/shop.yaml")
	require.NoError(t, err)
	assert.Equal(t, "lake", bucket)
	assert.Equal(t, "schemas/shop.yaml", key)

	for _, bad := range []string{"s3://lake", "s3://lake/", "gs://lake/x", "s3:///x"} {
		_, _, err := ParseS3URI(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseGCSURI(t *testing.T) {
	bucket, key, err := ParseGCSURI("gs://lake/a/b.yaml")
	require.NoError(t, err)
	assert.Equal(t, "lake", bucket)
	assert.Equal(t, "a/b.yaml", key)

	_, _, err = ParseGCSURI("s3://lake/a")
	assert.Error(t, err)
}

func TestParseAzureURI(t *testing.T) {
	tests := []struct {
		uri       string
		container string
		blob      string
	}{
		{"abfss://schemas@acct.dfs.core.windows.net/shop/schema.yaml", "schemas", "shop/schema.yaml"},
		{"az://schemas/shop.yaml", "schemas", "shop.yaml"},
		{"https://acct.blob.core.windows.net/schemas/dir/shop.yaml", "schemas", "dir/shop.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			c, b, err := ParseAzureURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.container, c)
			assert.Equal(t, tt.blob, b)
		})
	}

	for _, bad := range []string{
		"abfss://acct.dfs.core.windows.net/x",
		"az://schemas",
		"https://example.com/c/b",
		"https://acct.blob.core.windows.net/onlycontainer",
		"ftp://x/y",
	} {
		_, _, err := ParseAzureURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocalReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o600))

	for _, uri := range []string{path, "file://" + path} {
		rc, err := LocalReader{}.Open(context.Background(), uri)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "name: x\n", string(data))
	}

	_, err := LocalReader{}.Open(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRouter_DispatchesByScheme(t *testing.T) {
	r := NewRouter(nil)
	var got []string
	fake := func(backend string) Opener {
		return OpenerFunc(func(_ context.Context, uri string) (io.ReadCloser, error) {
			got = append(got, backend+" "+uri)
			return io.NopCloser(strings.NewReader(backend)), nil
		})
	}
	for _, b := range []string{"local", "s3", "gs", "azure"} {
		r.Register(b, fake(b))
	}

	uris := []string{
		"schema.yaml",
		"file:///x.yaml",
		"s3://b/k",
		"gs://b/k",
		"az://c/k",
		"abfss://c@a.dfs.core.windows.net/k",
		"https://a.blob.core.windows.net/c/k",
	}
	for _, uri := range uris {
		rc, err := r.Open(context.Background(), uri)
		require.NoError(t, err, uri)
		_ = rc.Close()
	}
	assert.Equal(t, []string{
		"local schema.yaml",
		"local file:///x.yaml",
		"s3 s3://b/k",
		"gs gs://b/k",
		"azure az://c/k",
		"azure abfss://c@a.dfs.core.windows.net/k",
		"azure https://a.blob.core.windows.net/c/k",
	}, got)
}

func TestRouter_Errors(t *testing.T) {
	r := NewRouter(&config.Config{})
	ctx := context.Background()

	tests := []struct {
		uri  string
		want string
	}{
		{"s3://b/k", "S3 config is incomplete"},
		{"gs://b/k", "GCS_KEY_FILE"},
		{"az://c/k", "AZURE_ACCOUNT_NAME"},
		{"ftp://host/x", "unsupported URI scheme"},
		{"https://example.com/x", "unsupported https location"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			_, err := r.Open(ctx, tt.uri)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRouter_CachesAzureReader(t *testing.T) {
	r := NewRouter(&config.Config{AzureAccountName: "acct", AzureAccountKey: "a2V5"})

	first, err := r.opener(context.Background(), "azure")
	require.NoError(t, err)
	second, err := r.opener(context.Background(), "azure")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.IsType(t, &AzureReader{}, first)
}

func TestS3Reader_Open(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte("name: shop\n"))
	}))
	defer srv.Close()

	reader, err := NewS3Reader(&config.Config{
		S3KeyID:    strPtr("key"),
		S3Secret:   strPtr("secret"),
		S3Endpoint: strPtr(srv.URL),
		S3Region:   strPtr("us-east-1"),
	})
	require.NoError(t, err)

	rc, err := reader.Open(context.Background(), "s3://lake/schemas/shop.yaml")
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	assert.Equal(t, "name: shop\n", string(data))
	assert.Equal(t, "/lake/schemas/shop.yaml", gotPath)
}

func TestNewS3Reader_Incomplete(t *testing.T) {
	_, err := NewS3Reader(&config.Config{S3KeyID: strPtr("k")})
	require.Error(t, err)
}

func TestNewGCSReader_RequiresKeyFile(t *testing.T) {
	_, err := NewGCSReader(context.Background(), "")
	require.Error(t, err)
}
