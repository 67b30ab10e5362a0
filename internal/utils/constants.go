package utils

import "time"

// Application Constants
const (
	AppName    = "resq"
	AppVersion = "1.0.0"

	// Response status
	StatusSuccess = "success"
	StatusError   = "error"

	// Context keys set by middleware
	ContextKeyRequestID = "request_id"

	// File Upload
	MaxMediaSize = 50 * 1024 * 1024 // 50MB

	// Bridge
	ShutdownTimeout = 10 * time.Second
)

// WebSocket message types pushed to the UI shell
const (
	MessageTypeWelcome   = "welcome"
	MessageTypeCaseState = "case_state"
	MessageTypeSOSState  = "sos_state"
	MessageTypeSOSError  = "sos_error"
	MessageTypeNavigate  = "navigate"
	MessageTypePong      = "pong"
)

// Error Messages
const (
	ErrUnauthorized       = "Unauthorized access"
	ErrValidationFailed   = "Validation failed"
	ErrBackendUnavailable = "The emergency service cannot be reached, use the offline SOS or call a hotline"
	ErrCancelFailed       = "Could not cancel the report, please try again"
	ErrSOSNotCancellable  = "No SOS countdown to cancel"
	ErrMediaTooLarge      = "Media file is too large"
)

// Success Messages
const (
	MsgCaseLoaded          = "Active case loaded"
	MsgCaseRefreshed       = "Cases refreshed"
	MsgCaseCancelled       = "Report cancelled"
	MsgNotificationsLoaded = "Notifications loaded"
	MsgSOSStarted          = "SOS countdown started"
	MsgSOSCancelled        = "SOS countdown cancelled"
	MsgSOSExisting         = "You already have an active case"
	MsgSOSBusy             = "SOS is being sent"
	MsgSOSState            = "SOS state"
	MsgOfflineSOSSent      = "Offline SOS sent"
	MsgMediaAttached       = "Media attached"
	MsgLocationUpdated     = "Location updated"
)
