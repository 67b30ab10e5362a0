package models

import "strings"

type CaseStatus string

// CasePhase groups wire statuses into the buckets the client reasons about.
type CasePhase string

const (
	StatusPending       CaseStatus = "pending"
	StatusAcknowledged  CaseStatus = "acknowledged"
	StatusEnRoute       CaseStatus = "en_route"
	StatusOnScene       CaseStatus = "on_scene"
	StatusResponding    CaseStatus = "responding"
	StatusAssigned      CaseStatus = "assigned"
	StatusInvestigating CaseStatus = "investigating"
	StatusResolved      CaseStatus = "resolved"
	StatusClosed        CaseStatus = "closed"
	StatusUnknown       CaseStatus = "unknown"

	PhasePending    CasePhase = "pending"
	PhaseResponding CasePhase = "responding"
	PhaseHistorical CasePhase = "historical"
	PhaseUnknown    CasePhase = "unknown"
)

var statusPhases = map[CaseStatus]CasePhase{
	StatusPending:       PhasePending,
	StatusAcknowledged:  PhaseResponding,
	StatusEnRoute:       PhaseResponding,
	StatusOnScene:       PhaseResponding,
	StatusResponding:    PhaseResponding,
	StatusAssigned:      PhaseResponding,
	StatusInvestigating: PhaseResponding,
	StatusResolved:      PhaseHistorical,
	StatusClosed:        PhaseHistorical,
}

// wireStatuses holds the write and display spellings of each status. Reads
// go through NormalizeStatus instead, since the backend accepts any casing.
var wireStatuses = map[CaseStatus][]string{
	StatusPending:       {"pending", "Pending"},
	StatusAcknowledged:  {"acknowledged", "Acknowledged"},
	StatusEnRoute:       {"en route", "En Route"},
	StatusOnScene:       {"on scene", "On Scene"},
	StatusResponding:    {"responding", "Responding"},
	StatusAssigned:      {"assigned", "Assigned"},
	StatusInvestigating: {"investigating", "Investigating"},
	StatusResolved:      {"resolved", "Resolved"},
	StatusClosed:        {"closed", "Closed"},
}

// NormalizeStatus maps any wire spelling ("En Route", "en-route", "EN_ROUTE")
// onto the canonical enum.
func NormalizeStatus(raw string) CaseStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	status := CaseStatus(s)
	if _, ok := statusPhases[status]; ok {
		return status
	}
	return StatusUnknown
}

func (s CaseStatus) Phase() CasePhase {
	if phase, ok := statusPhases[s]; ok {
		return phase
	}
	return PhaseUnknown
}

// WireValue is the spelling written back to the backend.
func (s CaseStatus) WireValue() string {
	if values, ok := wireStatuses[s]; ok {
		return values[0]
	}
	return string(s)
}

// Label is the display form, e.g. "En Route".
func (s CaseStatus) Label() string {
	if values, ok := wireStatuses[s]; ok && len(values) > 1 {
		return values[1]
	}
	return string(s)
}

func (s CaseStatus) IsHistorical() bool {
	return s.Phase() == PhaseHistorical
}

// ActiveStatuses are the statuses that keep a case in the active slot.
func ActiveStatuses() []CaseStatus {
	return []CaseStatus{
		StatusPending,
		StatusAcknowledged,
		StatusEnRoute,
		StatusOnScene,
		StatusResponding,
		StatusAssigned,
		StatusInvestigating,
	}
}

// IsNotifiable reports whether a case with this status surfaces in the
// notification feed.
func (s CaseStatus) IsNotifiable() bool {
	return s.Phase() != PhaseUnknown
}

// NotifiableStatuses are the statuses that surface in the notification feed.
func NotifiableStatuses() []CaseStatus {
	return append(ActiveStatuses(), StatusResolved, StatusClosed)
}
