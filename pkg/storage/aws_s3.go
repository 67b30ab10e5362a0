package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// AWSS3Storage writes evidence into a private bucket. Public URLs use the
// path style so the bucket segment survives into tbl_media and the key can
// be recovered with PathFromURL.
type AWSS3Storage struct {
	client    s3API
	bucket    string
	region    string
	cdnDomain string
}

func NewAWSS3Storage(ctx context.Context, region, bucket, cdnDomain string) (*AWSS3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Storage(s3.NewFromConfig(cfg), region, bucket, cdnDomain), nil
}

func newS3Storage(client s3API, region, bucket, cdnDomain string) *AWSS3Storage {
	return &AWSS3Storage{client: client, bucket: bucket, region: region, cdnDomain: cdnDomain}
}

func (a *AWSS3Storage) Upload(ctx context.Context, request *UploadRequest) (*UploadResponse, error) {
	body, size, err := sizedBody(request)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(request.Key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentTypeOf(request)),
		CacheControl:  aws.String(cacheControlOf(request)),
		Metadata:      request.Metadata,
		// Evidence is write-once; a key collision must not replace a file.
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to S3: %w", request.Key, err)
	}

	return &UploadResponse{
		Key:  request.Key,
		URL:  a.publicURL(request.Key),
		Size: size,
		ETag: aws.ToString(resp.ETag),
	}, nil
}

// Delete succeeds for keys that are already gone; S3 reports no error then.
func (a *AWSS3Storage) Delete(ctx context.Context, key string) error {
	if _, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	return nil
}

func (a *AWSS3Storage) publicURL(key string) string {
	if a.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s/%s", a.cdnDomain, a.bucket, key)
	}
	return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", a.region, a.bucket, key)
}

// sizedBody buffers unsized streams so PutObject can send a content length.
func sizedBody(request *UploadRequest) (io.Reader, int64, error) {
	if request.Size > 0 {
		return request.Reader, request.Size, nil
	}
	data, err := io.ReadAll(io.LimitReader(request.Reader, MaxObjectSize+1))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > MaxObjectSize {
		return nil, 0, ErrObjectTooLarge
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
