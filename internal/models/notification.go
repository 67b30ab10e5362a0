package models

import (
	"fmt"
	"sort"
	"time"
)

type NotificationKind string

const (
	NotificationSubmitted  NotificationKind = "submitted"
	NotificationResponding NotificationKind = "responding"
	NotificationResolved   NotificationKind = "resolved"
	NotificationCancelled  NotificationKind = "cancelled"
	NotificationClosed     NotificationKind = "closed"

	// NotificationLimit is the size of the feed window.
	NotificationLimit = 20
)

// Notification is a read-only view of a case at its latest status.
type Notification struct {
	ReportID   string           `json:"report_id"`
	Kind       NotificationKind `json:"kind"`
	Status     CaseStatus       `json:"status"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	OfficeName string           `json:"office_name,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func KindFor(c *Case) (NotificationKind, bool) {
	switch {
	case c.IsCancelledByReporter():
		return NotificationCancelled, true
	case c.Status == StatusPending:
		return NotificationSubmitted, true
	case c.Phase() == PhaseResponding:
		return NotificationResponding, true
	case c.Status == StatusResolved:
		return NotificationResolved, true
	case c.Status == StatusClosed:
		return NotificationClosed, true
	}
	return "", false
}

func NewNotification(c *Case) (Notification, bool) {
	kind, ok := KindFor(c)
	if !ok {
		return Notification{}, false
	}

	office := StringValue(c.OfficeName)
	n := Notification{
		ReportID:   c.ReportID,
		Kind:       kind,
		Status:     c.Status,
		OfficeName: office,
		UpdatedAt:  c.UpdatedAt,
	}

	switch kind {
	case NotificationSubmitted:
		n.Title = "Report submitted"
		n.Message = fmt.Sprintf("Your %s report is waiting for a responder.", categoryOrDefault(c.Category))
	case NotificationResponding:
		n.Title = "Responders on the case"
		n.Message = fmt.Sprintf("Status updated to %s.", c.Status.Label())
		if office != "" {
			n.Message = fmt.Sprintf("%s updated your report to %s.", office, c.Status.Label())
		}
	case NotificationResolved:
		n.Title = "Report resolved"
		n.Message = "Your report has been marked resolved."
		if office != "" {
			n.Message = fmt.Sprintf("%s marked your report resolved.", office)
		}
	case NotificationCancelled:
		n.Title = "Report cancelled"
		n.Message = "You cancelled this report."
	case NotificationClosed:
		n.Title = "Report closed"
		n.Message = "Your report has been closed."
		if office != "" {
			n.Message = fmt.Sprintf("%s closed your report.", office)
		}
	}
	return n, true
}

// ProjectNotifications orders by UpdatedAt descending and caps the feed.
func ProjectNotifications(cases []*Case, limit int) []Notification {
	if limit <= 0 {
		limit = NotificationLimit
	}

	sorted := make([]*Case, 0, len(cases))
	for _, c := range cases {
		if c != nil {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	out := make([]Notification, 0, min(len(sorted), limit))
	for _, c := range sorted {
		if len(out) == limit {
			break
		}
		if n, ok := NewNotification(c); ok {
			out = append(out, n)
		}
	}
	return out
}

func categoryOrDefault(category string) string {
	if category == "" {
		return CategoryEmergency
	}
	return category
}
