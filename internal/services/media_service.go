package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"resq/internal/models"
	"resq/internal/repositories/interfaces"
	"resq/pkg/logger"
	"resq/pkg/storage"
)

type MediaService interface {
	Attach(ctx context.Context, reportID, filename, contentType string, reader io.Reader) (*models.Media, error)
	List(ctx context.Context, reportID string) ([]*models.Media, error)
}

type mediaService struct {
	storage storage.StorageProvider
	repo    interfaces.CaseRepository
	log     *logger.Logger
}

func NewMediaService(provider storage.StorageProvider, repo interfaces.CaseRepository, log *logger.Logger) MediaService {
	if log == nil {
		log = logger.NewNop()
	}
	return &mediaService{storage: provider, repo: repo, log: log.WithComponent("media")}
}

func (s *mediaService) Attach(ctx context.Context, reportID, filename, contentType string, reader io.Reader) (*models.Media, error) {
	if reportID == "" || strings.HasPrefix(reportID, models.TempIDPrefix) {
		return nil, fmt.Errorf("cannot attach media to unconfirmed report %q", reportID)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType == "" {
		contentType = storage.ContentTypeFor(filename)
	}
	key := fmt.Sprintf("reports/%s/%s%s", reportID, uuid.New().String(), ext)

	uploaded, err := s.storage.Upload(ctx, &storage.UploadRequest{
		Key:         key,
		Reader:      reader,
		ContentType: contentType,
		Metadata:    map[string]string{"report_id": reportID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	media := &models.Media{
		ReportID: reportID,
		FileURL:  uploaded.URL,
		FileType: contentType,
	}
	if err := s.repo.AttachMedia(ctx, media); err != nil {
		// Keep storage and rows consistent.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.log.WithError(delErr).WithField("key", key).Warn("Failed to remove orphaned upload")
		}
		return nil, err
	}

	s.log.WithReportID(reportID).WithField("key", key).Info("Media attached")
	return media, nil
}

func (s *mediaService) List(ctx context.Context, reportID string) ([]*models.Media, error) {
	return s.repo.FetchMedia(ctx, reportID)
}
