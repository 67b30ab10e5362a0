package validators

import (
	"github.com/go-playground/validator/v10"

	"resq/internal/models"
)

// validateSOSRequest rejects the 0/0 placeholder: a case must never be
// created without a real position.
func validateSOSRequest(sl validator.StructLevel) {
	req := sl.Current().Interface().(models.SOSRequest)
	if req.Latitude == 0 && req.Longitude == 0 {
		sl.ReportError(req.Latitude, "Latitude", "p_latitude", "coordinates", "")
	}
}

// ValidateSOSRequest checks the procedure parameters before dispatch.
func ValidateSOSRequest(req *models.SOSRequest) error {
	if errs := ValidateStruct(req); len(errs) > 0 {
		return errs
	}
	return nil
}

// LocationUpdate is a device position pushed by the UI shell.
type LocationUpdate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Accuracy  float64 `json:"accuracy" validate:"gte=0"`
}

func ValidateLocationUpdate(req *LocationUpdate) error {
	if errs := ValidateStruct(req); len(errs) > 0 {
		return errs
	}
	if req.Latitude == 0 && req.Longitude == 0 {
		return ValidationErrors{{Field: "Latitude", Tag: "coordinates", Message: ErrInvalidCoordinates.Error()}}
	}
	return nil
}
