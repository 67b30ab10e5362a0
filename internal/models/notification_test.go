package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindDistinguishesReporterCancellation(t *testing.T) {
	marker := CancellationMarker
	office := "Station 1"

	cancelled := &Case{ReportID: "r1", Status: StatusClosed, Remarks: &marker}
	closed := &Case{ReportID: "r2", Status: StatusClosed, OfficeName: &office}

	n, ok := NewNotification(cancelled)
	require.True(t, ok)
	assert.Equal(t, NotificationCancelled, n.Kind)

	n, ok = NewNotification(closed)
	require.True(t, ok)
	assert.Equal(t, NotificationClosed, n.Kind)
	assert.Equal(t, "Station 1 closed your report.", n.Message)
}

func TestNewNotificationSkipsUnknownStatus(t *testing.T) {
	_, ok := NewNotification(&Case{ReportID: "r1", Status: StatusUnknown})
	assert.False(t, ok)
}

func TestProjectNotificationsOrdersAndCaps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var cases []*Case
	for i := 0; i < 25; i++ {
		cases = append(cases, &Case{
			ReportID:  fmt.Sprintf("r%d", i),
			Status:    StatusResolved,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	cases = append(cases, nil)

	feed := ProjectNotifications(cases, 0)

	require.Len(t, feed, NotificationLimit)
	assert.Equal(t, "r24", feed[0].ReportID)
	assert.Equal(t, "r5", feed[len(feed)-1].ReportID)
}

func TestProjectNotificationsKinds(t *testing.T) {
	now := time.Now()
	feed := ProjectNotifications([]*Case{
		{ReportID: "p", Status: StatusPending, UpdatedAt: now},
		{ReportID: "o", Status: StatusOnScene, UpdatedAt: now.Add(-time.Minute)},
	}, 5)

	require.Len(t, feed, 2)
	assert.Equal(t, NotificationSubmitted, feed[0].Kind)
	assert.Equal(t, NotificationResponding, feed[1].Kind)
	assert.Equal(t, "Status updated to On Scene.", feed[1].Message)
}
