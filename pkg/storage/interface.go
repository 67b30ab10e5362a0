package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
)

// MaxObjectSize bounds a single evidence upload.
const MaxObjectSize = 50 << 20

const defaultCacheControl = "private, max-age=86400"

var ErrObjectTooLarge = errors.New("media exceeds the upload size limit")

// StorageProvider stores report media blobs.
type StorageProvider interface {
	Upload(ctx context.Context, request *UploadRequest) (*UploadResponse, error)
	Delete(ctx context.Context, key string) error
}

type UploadRequest struct {
	Key          string            `json:"key"`
	Reader       io.Reader         `json:"-"`
	ContentType  string            `json:"content_type"`
	Size         int64             `json:"size"`
	Metadata     map[string]string `json:"metadata"`
	CacheControl string            `json:"cache_control"`
}

type UploadResponse struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	ETag string `json:"etag"`
}

func contentTypeOf(request *UploadRequest) string {
	if request.ContentType != "" {
		return request.ContentType
	}
	return ContentTypeFor(request.Key)
}

// Evidence URLs are shared only with the assigned office, so caches stay private.
func cacheControlOf(request *UploadRequest) string {
	if request.CacheControl != "" {
		return request.CacheControl
	}
	return defaultCacheControl
}

// PathFromURL derives the object key from a public media URL. Everything
// after the first "/{bucket}/" segment is the key; URLs without that
// segment use their whole path.
func PathFromURL(rawURL, bucket string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Path == "" {
		return "", false
	}

	path := u.Path
	if bucket != "" {
		marker := "/" + bucket + "/"
		if i := strings.Index(path, marker); i >= 0 {
			path = path[i+len(marker):]
		}
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return "", false
	}
	return path, true
}
