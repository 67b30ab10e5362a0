package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"resq/internal/gateway"
)

// RemoveObject deletes a blob. A configured ObjectStore takes precedence
// over the backend storage API.
func (c *Client) RemoveObject(ctx context.Context, bucket, path string) error {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return fmt.Errorf("empty object path")
	}
	if c.objects != nil {
		if err := c.objects.Delete(ctx, path); err != nil {
			return fmt.Errorf("failed to delete object %s: %w", path, err)
		}
		return nil
	}

	if err := c.doJSON(ctx, http.MethodDelete, c.objectURL(bucket, path), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, path, err)
	}
	return nil
}

// UploadObject stores data under bucket/path and returns its public URL.
func (c *Client) UploadObject(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error) {
	path = strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(bucket, path), data)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	c.authorize(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, path, decodeAPIError(resp.StatusCode, bytes.TrimSpace(body)))
	}
	return c.PublicURL(bucket, path), nil
}

func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapePath(path)
}

func (c *Client) objectURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapePath(path)
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
