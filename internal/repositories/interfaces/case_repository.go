package interfaces

import (
	"context"

	"resq/internal/models"
)

// CaseRepository reads the signed-in reporter's cases. Read methods never
// fail: backend errors are logged and degrade to nil or empty results.
type CaseRepository interface {
	ResolveCurrentUserID(ctx context.Context) (string, bool)
	FetchActiveCase(ctx context.Context, userID string) *models.Case
	FetchNotifications(ctx context.Context, userID string) []*models.Case
	FetchUserInfo(ctx context.Context, userID string) *models.UserInfo

	FetchMedia(ctx context.Context, reportID string) ([]*models.Media, error)
	AttachMedia(ctx context.Context, media *models.Media) error

	// CancelReport closes the report on behalf of its reporter and drops its
	// media. Blob and media-row cleanup are best-effort.
	CancelReport(ctx context.Context, reportID string, remarks *string) error

	CreateEmergencySOS(ctx context.Context, req *models.SOSRequest) (*models.SOSResult, error)
	PatchReportDescription(ctx context.Context, reportID, description string) error
}
