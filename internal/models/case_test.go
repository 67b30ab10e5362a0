package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseIsActive(t *testing.T) {
	marker := "note " + CancellationMarker

	tests := []struct {
		name string
		c    *Case
		want bool
	}{
		{"nil", nil, false},
		{"pending", &Case{Status: StatusPending}, true},
		{"en route", &Case{Status: StatusEnRoute}, true},
		{"resolved", &Case{Status: StatusResolved}, false},
		{"closed", &Case{Status: StatusClosed}, false},
		{"unknown", &Case{Status: StatusUnknown}, false},
		{"pending but cancelled", &Case{Status: StatusPending, Remarks: &marker}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.IsActive())
		})
	}
}

func TestAppendCancellationMarker(t *testing.T) {
	assert.Equal(t, CancellationMarker, AppendCancellationMarker(nil))

	blank := "   "
	assert.Equal(t, CancellationMarker, AppendCancellationMarker(&blank))

	existing := "caller unreachable"
	assert.Equal(t, "caller unreachable "+CancellationMarker, AppendCancellationMarker(&existing))

	already := AppendCancellationMarker(&existing)
	assert.Equal(t, already, AppendCancellationMarker(&already))
}

func TestCloneIsDeep(t *testing.T) {
	office := "Station 1"
	c := &Case{ReportID: "r1", OfficeName: &office}

	clone := c.Clone()
	*clone.OfficeName = "Station 2"

	assert.Equal(t, "Station 1", *c.OfficeName)
	assert.Nil(t, (*Case)(nil).Clone())
}

func TestWithCoordinates(t *testing.T) {
	c := &Case{ReportID: "temp-1", Optimistic: true}

	moved := c.WithCoordinates(12.9, 123.4)

	assert.Zero(t, c.Latitude)
	assert.Equal(t, 12.9, moved.Latitude)
	assert.Equal(t, 123.4, moved.Longitude)
	assert.True(t, moved.IsTemporary())
	assert.True(t, moved.HasLocation())
}

func TestCaseFromRow(t *testing.T) {
	row := map[string]interface{}{
		"report_id":          float64(42),
		"reporter_id":        "u1",
		"assigned_office_id": nil,
		"category":           "Emergency",
		"description":        "SOS",
		"status":             "En Route",
		"latitude":           "12.9",
		"longitude":          123.4,
		"remarks":            "",
		"created_at":         "2024-05-01T10:00:00.123456+00:00",
		"updated_at":         "2024-05-01 10:05:00.5+00",
	}

	c, err := CaseFromRow(row)
	require.NoError(t, err)

	assert.Equal(t, "42", c.ReportID)
	assert.Equal(t, StatusEnRoute, c.Status)
	assert.Nil(t, c.AssignedOfficeID)
	assert.Nil(t, c.Remarks)
	assert.InDelta(t, 12.9, c.Latitude, 1e-9)
	assert.InDelta(t, 123.4, c.Longitude, 1e-9)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), c.CreatedAt.UTC())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 500000000, time.UTC), c.UpdatedAt.UTC())
}

func TestCaseFromRowErrors(t *testing.T) {
	_, err := CaseFromRow(map[string]interface{}{"status": "pending"})
	assert.ErrorIs(t, err, ErrMissingReportID)

	_, err = CaseFromRow(map[string]interface{}{"report_id": "r1", "latitude": "north"})
	assert.Error(t, err)
}

func TestCaseFromRowDefaultsUpdatedAt(t *testing.T) {
	c, err := CaseFromRow(map[string]interface{}{
		"report_id":  "r1",
		"created_at": "2024-05-01T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestMediaFromRow(t *testing.T) {
	m, ok := MediaFromRow(map[string]interface{}{"report_id": "r1", "file_url": "https://x/y.jpg"})
	require.True(t, ok)
	assert.Equal(t, "r1", m.ReportID)

	_, ok = MediaFromRow(map[string]interface{}{"report_id": "r1"})
	assert.False(t, ok)
}
