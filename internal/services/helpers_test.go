package services

import (
	"testing"
	"time"

	"resq/internal/config"
	"resq/internal/gateway"
	"resq/internal/gateway/gatewaytest"
	"resq/internal/models"
	"resq/internal/repositories/backend"
	"resq/internal/repositories/interfaces"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testCaseConfig() *config.CaseConfig {
	return &config.CaseConfig{
		RefreshDebounce:   20 * time.Millisecond,
		NotificationLimit: 20,
		SOSCountdown:      60 * time.Millisecond,
		SOSCountdownTick:  20 * time.Millisecond,
		NavigateDelay:     10 * time.Millisecond,
		GeocodeTimeout:    200 * time.Millisecond,
		LocationTimeout:   50 * time.Millisecond,
		Category:          models.CategoryEmergency,
	}
}

// signedInFake returns a gateway with reporter u1 signed in.
func signedInFake() *gatewaytest.Fake {
	fake := gatewaytest.New()
	fake.SetSession(&models.Session{UserID: "u1", Email: "ana@example.test"})
	fake.Seed(gateway.TableUsers, gateway.Row{
		"user_id": "u1", "first_name": "Ana", "last_name": "Reyes", "contact_number": "+639170000000",
	})
	return fake
}

func reportRow(id, status string, created time.Time) gateway.Row {
	return gateway.Row{
		"report_id":   id,
		"reporter_id": "u1",
		"status":      status,
		"category":    models.CategoryEmergency,
		"latitude":    14.55,
		"longitude":   121.02,
		"created_at":  created.Format(time.RFC3339),
		"updated_at":  created.Format(time.RFC3339),
	}
}

func newRepo(fake *gatewaytest.Fake) interfaces.CaseRepository {
	return backend.NewCaseRepository(fake, nil, backend.Options{MediaBucket: "report-media"}, nil)
}

func newCases(t *testing.T, fake *gatewaytest.Fake) (ActiveCaseService, interfaces.CaseRepository) {
	t.Helper()
	repo := newRepo(fake)
	svc := NewActiveCaseService(repo, fake, testCaseConfig(), nil)
	t.Cleanup(svc.Close)
	return svc, repo
}

// isNotificationRead tells the feed read apart from the active-case read,
// which orders by creation time.
func isNotificationRead(q *gateway.Query) bool {
	return q.Table == gateway.TableReports && len(q.Order) > 0 && q.Order[0].Column == "updated_at"
}
