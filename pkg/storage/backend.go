package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectAPI is the storage half of the backend client.
type ObjectAPI interface {
	UploadObject(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error)
	RemoveObject(ctx context.Context, bucket, path string) error
}

// BackendStorage keeps media in the bucket served by the backend itself.
type BackendStorage struct {
	api    ObjectAPI
	bucket string
}

func NewBackendStorage(api ObjectAPI, bucket string) *BackendStorage {
	return &BackendStorage{api: api, bucket: bucket}
}

func (b *BackendStorage) Upload(ctx context.Context, request *UploadRequest) (*UploadResponse, error) {
	url, err := b.api.UploadObject(ctx, b.bucket, request.Key, request.Reader, request.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to backend storage: %w", err)
	}
	return &UploadResponse{Key: request.Key, URL: url, Size: request.Size}, nil
}

func (b *BackendStorage) Delete(ctx context.Context, key string) error {
	return b.api.RemoveObject(ctx, b.bucket, key)
}
