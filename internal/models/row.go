package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var ErrMissingReportID = errors.New("row has no report_id")

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
}

// CaseFromRow validates and coerces an untyped tbl_reports row.
func CaseFromRow(row map[string]interface{}) (*Case, error) {
	id := RowString(row, "report_id")
	if id == "" {
		return nil, ErrMissingReportID
	}

	lat, err := RowFloat(row, "latitude")
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", id, err)
	}
	lng, err := RowFloat(row, "longitude")
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", id, err)
	}

	c := &Case{
		ReportID:         id,
		ReporterID:       RowString(row, "reporter_id"),
		AssignedOfficeID: StringPtr(RowString(row, "assigned_office_id")),
		Category:         RowString(row, "category"),
		Description:      RowString(row, "description"),
		Status:           NormalizeStatus(RowString(row, "status")),
		Latitude:         lat,
		Longitude:        lng,
		Remarks:          StringPtr(RowString(row, "remarks")),
		CreatedAt:        RowTime(row, "created_at"),
		UpdatedAt:        RowTime(row, "updated_at"),
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return c, nil
}

func MediaFromRow(row map[string]interface{}) (*Media, bool) {
	url := RowString(row, "file_url")
	if url == "" {
		return nil, false
	}
	return &Media{
		ReportID:  RowString(row, "report_id"),
		FileURL:   url,
		FileType:  RowString(row, "file_type"),
		CreatedAt: RowTime(row, "created_at"),
	}, true
}

func UserInfoFromRow(row map[string]interface{}) *UserInfo {
	return &UserInfo{
		UserID:    RowString(row, "user_id"),
		FirstName: RowString(row, "first_name"),
		LastName:  RowString(row, "last_name"),
		Phone:     RowString(row, "contact_number"),
		Email:     RowString(row, "email"),
	}
}

// RowString renders scalar values as strings; nil and missing become "".
func RowString(row map[string]interface{}, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// RowFloat accepts numbers and numeric strings; missing or null is 0.
func RowFloat(row map[string]interface{}, key string) (float64, error) {
	switch v := row[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("column %s: unsupported type %T", key, v)
	}
}

// RowTime parses the timestamp forms the backend emits; unparseable
// values become the zero time.
func RowTime(row map[string]interface{}, key string) time.Time {
	switch v := row[key].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
