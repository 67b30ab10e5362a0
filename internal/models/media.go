package models

import "time"

type Media struct {
	ReportID  string    `json:"report_id"`
	FileURL   string    `json:"file_url"`
	FileType  string    `json:"file_type,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
