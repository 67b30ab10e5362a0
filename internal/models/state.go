package models

// CaseState is the snapshot the UI renders for the reporter's cases.
type CaseState struct {
	ActiveCase    *Case          `json:"active_case"`
	Notifications []Notification `json:"notifications"`
	Loading       bool           `json:"loading"`
}
