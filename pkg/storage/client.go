// Package storage uploads objects to a Supabase-style storage REST API and
// returns their public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// maxObjectBytes caps the size of a rehosted download.
const maxObjectBytes = 10 << 20

// Client defines the object storage operations used by the pipeline.
type Client interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, body []byte) (string, error)
	Rehost(ctx context.Context, srcURL, bucket, objectPath string) (string, error)
}

// APIError is returned when the storage API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewClient creates a storage client for the project at baseURL,
// authenticated with a service key.
func NewClient(baseURL, key string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PublicURL returns the public URL of an object.
func PublicURL(baseURL, bucket, objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(bucket), escapePath(objectPath))
}

func (c *httpClient) Upload(ctx context.Context, bucket, objectPath, contentType string, body []byte) (string, error) {
	if bucket == "" || objectPath == "" {
		return "", eris.New("storage: upload: bucket and path are required")
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(objectPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "storage: create request")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("apikey", c.key)
	req.Header.Set("x-upsert", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "storage: upload %s/%s", bucket, objectPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return PublicURL(c.baseURL, bucket, objectPath), nil
}

// Rehost downloads srcURL and uploads it under bucket/objectPath. When
// objectPath has no extension one is derived from the content type.
func (c *httpClient) Rehost(ctx context.Context, srcURL, bucket, objectPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "storage: create download request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "storage: download %s", srcURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", eris.Errorf("storage: download %s: HTTP %d", srcURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes+1))
	if err != nil {
		return "", eris.Wrap(err, "storage: read download")
	}
	if len(data) > maxObjectBytes {
		return "", eris.Errorf("storage: download %s exceeds %d bytes", srcURL, maxObjectBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if path.Ext(objectPath) == "" {
		objectPath += extensionFor(contentType)
	}
	return c.Upload(ctx, bucket, objectPath, contentType, data)
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
