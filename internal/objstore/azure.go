package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

var _ Opener = (*AzureReader)(nil)

// AzureReader reads blobs from Azure Blob Storage using shared-key
// credentials.
type AzureReader struct {
	client *azblob.Client
}

// NewAzureReader creates a reader for the given storage account.
func NewAzureReader(accountName, accountKey string) (*AzureReader, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureReader{client: client}, nil
}

// Open implements Opener for az://, abfss:// and blob https:// URIs.
func (r *AzureReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	container, blob, err := ParseAzureURI(uri)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download blob %q: %w", uri, err)
	}
	return resp.Body, nil
}

// ParseAzureURI extracts container and blob name from an Azure storage URI.
//
// Supported formats:
//
//	abfss://container@account.dfs.core.windows.net/path/to/file
//	az://container/path/to/file
//	https://account.blob.core.windows.net/container/path/to/file
func ParseAzureURI(uri string) (container, blob string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse Azure path %q: %w", uri, err)
	}

	switch u.Scheme {
	case "abfss":
		// url.Parse puts the container in userinfo.
		if u.User == nil {
			return "", "", fmt.Errorf("abfss path %q missing container@account component", uri)
		}
		container = u.User.Username()
		blob = strings.TrimPrefix(u.Path, "/")
	case "az":
		container = u.Host
		blob = strings.TrimPrefix(u.Path, "/")
	case "https":
		if !strings.HasSuffix(u.Host, ".blob.core.windows.net") {
			return "", "", fmt.Errorf("unrecognized Azure HTTPS host %q in path %q", u.Host, uri)
		}
		container, blob, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	default:
		return "", "", fmt.Errorf("unrecognized Azure path scheme %q in %q", u.Scheme, uri)
	}

	if container == "" {
		return "", "", fmt.Errorf("empty container in Azure path %q", uri)
	}
	if blob == "" {
		return "", "", fmt.Errorf("empty blob name in Azure path %q", uri)
	}
	return container, blob, nil
}
