package models

import (
	"strings"
	"time"
)

const (
	// CancellationMarker is appended to remarks when the reporter cancels a
	// case, so a closed case can be told apart from one closed by an office.
	CancellationMarker = "[Cancelled by reporter]"

	// TempIDPrefix marks a locally generated report id that the backend has
	// not confirmed yet.
	TempIDPrefix = "temp-"

	CategoryEmergency = "Emergency"
)

type Case struct {
	ReportID         string     `json:"report_id"`
	ReporterID       string     `json:"reporter_id"`
	AssignedOfficeID *string    `json:"assigned_office_id"`
	Category         string     `json:"category"`
	Description      string     `json:"description"`
	Status           CaseStatus `json:"status"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	Remarks          *string    `json:"remarks"`
	OfficeName       *string    `json:"office_name"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Optimistic is set on the locally built case shown while the backend
	// confirms an SOS. It never leaves the process.
	Optimistic bool `json:"optimistic"`
}

func (c *Case) Phase() CasePhase {
	return c.Status.Phase()
}

// IsActive reports whether the case belongs in the active slot.
func (c *Case) IsActive() bool {
	if c == nil || c.IsCancelledByReporter() {
		return false
	}
	phase := c.Phase()
	return phase == PhasePending || phase == PhaseResponding
}

func (c *Case) IsCancelledByReporter() bool {
	return c != nil && c.Remarks != nil && strings.Contains(*c.Remarks, CancellationMarker)
}

func (c *Case) HasLocation() bool {
	return c.Latitude != 0 || c.Longitude != 0
}

func (c *Case) IsTemporary() bool {
	return c.Optimistic || strings.HasPrefix(c.ReportID, TempIDPrefix)
}

func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	out.AssignedOfficeID = cloneString(c.AssignedOfficeID)
	out.Remarks = cloneString(c.Remarks)
	out.OfficeName = cloneString(c.OfficeName)
	return &out
}

// WithCoordinates returns a copy carrying the given position.
func (c *Case) WithCoordinates(lat, lng float64) *Case {
	out := c.Clone()
	out.Latitude = lat
	out.Longitude = lng
	out.UpdatedAt = time.Now()
	return out
}

// AppendCancellationMarker keeps existing remarks and adds the marker once.
func AppendCancellationMarker(existing *string) string {
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return CancellationMarker
	}
	current := strings.TrimSpace(*existing)
	if strings.Contains(current, CancellationMarker) {
		return current
	}
	return current + " " + CancellationMarker
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
