package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCPStorage uses the same key and URL layout as AWSS3Storage.
type GCPStorage struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

func NewGCPStorage(ctx context.Context, bucket, credentialsFile, cdnDomain string) (*GCPStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is not configured")
	}

	var options []option.ClientOption
	if credentialsFile != "" {
		options = append(options, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP storage client: %w", err)
	}

	return &GCPStorage{client: client, bucket: bucket, cdnDomain: cdnDomain}, nil
}

func (g *GCPStorage) Upload(ctx context.Context, request *UploadRequest) (*UploadResponse, error) {
	object := g.client.Bucket(g.bucket).Object(request.Key).If(storage.Conditions{DoesNotExist: true})

	// Cancelling the writer's context aborts the upload.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := object.NewWriter(ctx)
	writer.ContentType = contentTypeOf(request)
	writer.CacheControl = cacheControlOf(request)
	writer.Metadata = request.Metadata

	size, err := io.Copy(writer, io.LimitReader(request.Reader, MaxObjectSize+1))
	if err != nil {
		cancel()
		writer.Close()
		return nil, fmt.Errorf("failed to write %s to GCP storage: %w", request.Key, err)
	}
	if size > MaxObjectSize {
		cancel()
		writer.Close()
		return nil, ErrObjectTooLarge
	}
	if err := writer.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 412 {
			return nil, fmt.Errorf("object %s already exists: %w", request.Key, err)
		}
		return nil, fmt.Errorf("failed to finalize %s: %w", request.Key, err)
	}

	return &UploadResponse{
		Key:  request.Key,
		URL:  g.publicURL(request.Key),
		Size: size,
	}, nil
}

func (g *GCPStorage) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s from GCP storage: %w", key, err)
	}
	return nil
}

func (g *GCPStorage) publicURL(key string) string {
	if g.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s/%s", g.cdnDomain, g.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key)
}

func (g *GCPStorage) Close() error {
	return g.client.Close()
}
