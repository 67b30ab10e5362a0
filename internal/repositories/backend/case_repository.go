package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"resq/internal/gateway"
	"resq/internal/models"
	"resq/internal/repositories/interfaces"
	"resq/pkg/cache"
	"resq/pkg/logger"
	"resq/pkg/storage"
)

var reportColumns = []string{
	"report_id", "reporter_id", "assigned_office_id", "category", "description",
	"status", "latitude", "longitude", "remarks", "created_at", "updated_at",
}

type Options struct {
	MediaBucket       string
	NotificationLimit int
	CacheTTL          time.Duration
}

type caseRepository struct {
	gw      gateway.Gateway
	cache   cache.Cache
	options Options
	log     *logger.Logger
	now     func() time.Time
}

func NewCaseRepository(gw gateway.Gateway, c cache.Cache, options Options, log *logger.Logger) interfaces.CaseRepository {
	if options.NotificationLimit <= 0 {
		options.NotificationLimit = models.NotificationLimit
	}
	if options.CacheTTL <= 0 {
		options.CacheTTL = 10 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &caseRepository{
		gw:      gw,
		cache:   c,
		options: options,
		log:     log.WithComponent("case_repository"),
		now:     time.Now,
	}
}

func (r *caseRepository) ResolveCurrentUserID(ctx context.Context) (string, bool) {
	session, err := r.gw.Session(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Failed to read session")
		return "", false
	}
	if session == nil || session.UserID == "" {
		return "", false
	}

	cacheKey := fmt.Sprintf("user:auth:%s", session.UserID)
	var cached string
	if r.getCached(ctx, cacheKey, &cached) && cached != "" {
		return cached, true
	}

	userID := r.lookupUserID(ctx, gateway.Eq("user_id", session.UserID))
	if userID == "" && session.Email != "" {
		userID = r.lookupUserID(ctx, gateway.Eq("email", session.Email))
	}
	if userID == "" {
		return "", false
	}

	r.setCached(ctx, cacheKey, userID)
	return userID, true
}

func (r *caseRepository) lookupUserID(ctx context.Context, filter gateway.Filter) string {
	rows, err := r.gw.Query(ctx, &gateway.Query{
		Table:   gateway.TableUsers,
		Columns: []string{"user_id"},
		Filters: []gateway.Filter{filter},
		Limit:   1,
	})
	if err != nil {
		r.log.WithError(err).WithField("column", filter.Column).Warn("User lookup failed")
		return ""
	}
	if len(rows) == 0 {
		return ""
	}
	return models.RowString(rows[0], "user_id")
}

func (r *caseRepository) FetchActiveCase(ctx context.Context, userID string) *models.Case {
	if userID == "" {
		return nil
	}

	rows, err := r.gw.Query(ctx, &gateway.Query{
		Table:   gateway.TableReports,
		Columns: reportColumns,
		Filters: []gateway.Filter{gateway.Eq("reporter_id", userID)},
		Order:   []gateway.Order{{Column: "created_at", Descending: true}},
	})
	if err != nil {
		r.log.WithError(err).WithUserID(userID).Warn("Failed to fetch active case")
		return nil
	}

	var active []*models.Case
	for _, c := range r.decodeCases(rows) {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil
	}
	if len(active) > 1 {
		r.log.WithUserID(userID).Warnf("Reporter has %d active cases, keeping the newest", len(active))
	}

	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ReportID > active[j].ReportID
	})

	newest := active[0]
	newest.OfficeName = r.lookupOfficeName(ctx, newest.AssignedOfficeID)
	return newest
}

func (r *caseRepository) FetchNotifications(ctx context.Context, userID string) []*models.Case {
	if userID == "" {
		return nil
	}

	// Statuses arrive in any casing, so the reporter's rows are classified
	// here rather than filtered by the backend.
	rows, err := r.gw.Query(ctx, &gateway.Query{
		Table:   gateway.TableReports,
		Columns: reportColumns,
		Filters: []gateway.Filter{gateway.Eq("reporter_id", userID)},
		Order:   []gateway.Order{{Column: "updated_at", Descending: true}},
	})
	if err != nil {
		r.log.WithError(err).WithUserID(userID).Warn("Failed to fetch notifications")
		return nil
	}

	var cases []*models.Case
	for _, c := range r.decodeCases(rows) {
		if c.Status.IsNotifiable() {
			cases = append(cases, c)
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].UpdatedAt.After(cases[j].UpdatedAt)
	})
	if len(cases) > r.options.NotificationLimit {
		cases = cases[:r.options.NotificationLimit]
	}

	// Each lookup degrades on its own.
	var wg sync.WaitGroup
	for i := range cases {
		if cases[i].AssignedOfficeID == nil {
			continue
		}
		wg.Add(1)
		go func(c *models.Case) {
			defer wg.Done()
			c.OfficeName = r.lookupOfficeName(ctx, c.AssignedOfficeID)
		}(cases[i])
	}
	wg.Wait()

	return cases
}

func (r *caseRepository) FetchUserInfo(ctx context.Context, userID string) *models.UserInfo {
	if userID == "" {
		return nil
	}
	rows, err := r.gw.Query(ctx, &gateway.Query{
		Table:   gateway.TableUsers,
		Columns: []string{"user_id", "first_name", "last_name", "contact_number", "email"},
		Filters: []gateway.Filter{gateway.Eq("user_id", userID)},
		Limit:   1,
	})
	if err != nil {
		r.log.WithError(err).WithUserID(userID).Warn("Failed to fetch user info")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	return models.UserInfoFromRow(rows[0])
}

func (r *caseRepository) FetchMedia(ctx context.Context, reportID string) ([]*models.Media, error) {
	rows, err := r.gw.Query(ctx, &gateway.Query{
		Table:   gateway.TableMedia,
		Filters: []gateway.Filter{gateway.Eq("report_id", reportID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media for report %s: %w", reportID, err)
	}

	media := make([]*models.Media, 0, len(rows))
	for _, row := range rows {
		if m, ok := models.MediaFromRow(row); ok {
			media = append(media, m)
		}
	}
	return media, nil
}

func (r *caseRepository) AttachMedia(ctx context.Context, media *models.Media) error {
	createdAt := media.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	row := gateway.Row{
		"report_id":  media.ReportID,
		"file_url":   media.FileURL,
		"created_at": createdAt.UTC().Format(time.RFC3339Nano),
	}
	if media.FileType != "" {
		row["file_type"] = media.FileType
	}
	if err := r.gw.Insert(ctx, gateway.TableMedia, row); err != nil {
		return fmt.Errorf("failed to attach media to report %s: %w", media.ReportID, err)
	}
	return nil
}

func (r *caseRepository) CancelReport(ctx context.Context, reportID string, remarks *string) error {
	log := r.log.WithReportID(reportID)

	media, err := r.FetchMedia(ctx, reportID)
	if err != nil {
		log.WithError(err).Warn("Could not list media before cancellation")
	}
	for _, m := range media {
		path, ok := storage.PathFromURL(m.FileURL, r.options.MediaBucket)
		if !ok {
			log.WithField("file_url", m.FileURL).Warn("Cannot derive storage path for media")
			continue
		}
		if err := r.gw.RemoveObject(ctx, r.options.MediaBucket, path); err != nil {
			log.WithError(err).WithField("path", path).Warn("Failed to delete media blob")
		}
	}

	patch := gateway.Row{
		"status":     models.StatusClosed.WireValue(),
		"updated_at": r.now().UTC().Format(time.RFC3339Nano),
		"remarks":    models.AppendCancellationMarker(remarks),
	}
	if err := r.gw.Update(ctx, gateway.TableReports, []gateway.Filter{gateway.Eq("report_id", reportID)}, patch); err != nil {
		return fmt.Errorf("failed to cancel report %s: %w", reportID, err)
	}

	// Messages stay for audit; only media rows go.
	if err := r.gw.Delete(ctx, gateway.TableMedia, []gateway.Filter{gateway.Eq("report_id", reportID)}); err != nil {
		log.WithError(err).Warn("Failed to delete media rows after cancellation")
	}

	log.LogCaseEvent(reportID, "cancelled", map[string]interface{}{"media_count": len(media)})
	return nil
}

func (r *caseRepository) CreateEmergencySOS(ctx context.Context, req *models.SOSRequest) (*models.SOSResult, error) {
	var row gateway.Row
	if err := r.gw.CallProcedure(ctx, gateway.ProcedureCreateEmergencySOS, req, &row); err != nil {
		return nil, fmt.Errorf("failed to create emergency report: %w", err)
	}

	result := &models.SOSResult{
		ReportID:           models.RowString(row, "report_id"),
		AssignedOfficeID:   models.StringPtr(models.RowString(row, "assigned_office_id")),
		AssignedOfficeName: models.StringPtr(models.RowString(row, "assigned_office_name")),
	}
	if result.ReportID == "" {
		return nil, errors.New("emergency procedure returned no report id")
	}
	if result.AssignedOfficeID != nil {
		if result.AssignedOfficeName != nil {
			r.setCached(ctx, officeCacheKey(*result.AssignedOfficeID), *result.AssignedOfficeName)
		} else {
			result.AssignedOfficeName = r.lookupOfficeName(ctx, result.AssignedOfficeID)
		}
	}
	return result, nil
}

func (r *caseRepository) PatchReportDescription(ctx context.Context, reportID, description string) error {
	patch := gateway.Row{
		"description": description,
		"updated_at":  r.now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.gw.Update(ctx, gateway.TableReports, []gateway.Filter{gateway.Eq("report_id", reportID)}, patch); err != nil {
		return fmt.Errorf("failed to patch report %s: %w", reportID, err)
	}
	return nil
}

func (r *caseRepository) decodeCases(rows []gateway.Row) []*models.Case {
	cases := make([]*models.Case, 0, len(rows))
	for _, row := range rows {
		c, err := models.CaseFromRow(row)
		if err != nil {
			r.log.WithError(err).Warn("Skipping malformed report row")
			continue
		}
		cases = append(cases, c)
	}
	return cases
}

func (r *caseRepository) lookupOfficeName(ctx context.Context, officeID *string) *string {
	if officeID == nil || *officeID == "" {
		return nil
	}

	cacheKey := officeCacheKey(*officeID)
	var cached string
	if r.getCached(ctx, cacheKey, &cached) {
		return models.StringPtr(cached)
	}

	rows, err := r.gw.Query(ctx, &gateway.Query{
		Table:   gateway.TableOffices,
		Columns: []string{"office_name"},
		Filters: []gateway.Filter{gateway.Eq("office_id", *officeID)},
		Limit:   1,
	})
	if err != nil {
		r.log.WithError(err).WithField("office_id", *officeID).Warn("Office lookup failed")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	name := models.RowString(rows[0], "office_name")
	if name != "" {
		r.setCached(ctx, cacheKey, name)
	}
	return models.StringPtr(name)
}

func (r *caseRepository) getCached(ctx context.Context, key string, dest interface{}) bool {
	if r.cache == nil {
		return false
	}
	if err := r.cache.Get(ctx, key, dest); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.log.WithError(err).WithField("key", key).Debug("Cache read failed")
		}
		return false
	}
	return true
}

func (r *caseRepository) setCached(ctx context.Context, key string, value interface{}) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, value, r.options.CacheTTL); err != nil {
		r.log.WithError(err).WithField("key", key).Debug("Cache write failed")
	}
}

func officeCacheKey(officeID string) string {
	return fmt.Sprintf("office:%s", officeID)
}
