package models

import "time"

type SOSPhase string

const (
	SOSPhaseIdle        SOSPhase = "idle"
	SOSPhaseCountdown   SOSPhase = "countdown"
	SOSPhaseDispatching SOSPhase = "dispatching"
	SOSPhaseConfirmed   SOSPhase = "confirmed"
	SOSPhaseFailed      SOSPhase = "failed"
	SOSPhaseCancelled   SOSPhase = "cancelled"
)

// SOSState is what the SOS button renders.
type SOSState struct {
	AttemptID  string        `json:"attempt_id,omitempty"`
	Phase      SOSPhase      `json:"phase"`
	Remaining  time.Duration `json:"remaining"`
	SendingSOS bool          `json:"sending_sos"`
	ReportID   string        `json:"report_id,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
}

// SOSRequest carries the parameters of the backend case-creation procedure.
type SOSRequest struct {
	UserID      string  `json:"p_user_id" validate:"required"`
	Latitude    float64 `json:"p_latitude" validate:"latitude"`
	Longitude   float64 `json:"p_longitude" validate:"longitude"`
	Category    string  `json:"p_category" validate:"required"`
	Description string  `json:"p_description" validate:"required,max=2000"`
}

// SOSResult is the procedure output.
type SOSResult struct {
	ReportID           string  `json:"report_id"`
	AssignedOfficeID   *string `json:"assigned_office_id"`
	AssignedOfficeName *string `json:"assigned_office_name"`
}
