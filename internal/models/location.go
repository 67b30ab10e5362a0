package models

import (
	"fmt"
	"time"
)

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (l *Location) IsZero() bool {
	return l == nil || (l.Latitude == 0 && l.Longitude == 0)
}

func (l *Location) String() string {
	if l == nil {
		return "0.000000, 0.000000"
	}
	return fmt.Sprintf("%.6f, %.6f", l.Latitude, l.Longitude)
}

// Address is the reverse-geocoded form of a coordinate pair.
type Address struct {
	City        string `json:"city"`
	Barangay    string `json:"barangay"`
	FullAddress string `json:"full_address"`
}

func (a *Address) IsEmpty() bool {
	return a == nil || (a.City == "" && a.Barangay == "" && a.FullAddress == "")
}

// PreFetchedSOSData is gathered during the SOS countdown and discarded when
// the attempt ends.
type PreFetchedSOSData struct {
	UserInfo *UserInfo `json:"user_info"`
	Location *Location `json:"location"`
}
