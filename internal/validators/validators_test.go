package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resq/internal/models"
)

func validSOSRequest() *models.SOSRequest {
	return &models.SOSRequest{
		UserID:      "u1",
		Latitude:    12.9,
		Longitude:   123.4,
		Category:    models.CategoryEmergency,
		Description: "SOS Emergency Alert",
	}
}

func TestValidateSOSRequest(t *testing.T) {
	require.NoError(t, ValidateSOSRequest(validSOSRequest()))

	tests := []struct {
		name  string
		mut   func(r *models.SOSRequest)
		field string
	}{
		{"missing user", func(r *models.SOSRequest) { r.UserID = "" }, "UserID"},
		{"zero coordinates", func(r *models.SOSRequest) { r.Latitude, r.Longitude = 0, 0 }, "Latitude"},
		{"latitude out of range", func(r *models.SOSRequest) { r.Latitude = 91 }, "Latitude"},
		{"longitude out of range", func(r *models.SOSRequest) { r.Longitude = -181 }, "Longitude"},
		{"missing category", func(r *models.SOSRequest) { r.Category = "" }, "Category"},
		{"description too long", func(r *models.SOSRequest) { r.Description = strings.Repeat("x", 2001) }, "Description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSOSRequest()
			tt.mut(req)

			err := ValidateSOSRequest(req)
			require.Error(t, err)

			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateLocationUpdate(t *testing.T) {
	assert.NoError(t, ValidateLocationUpdate(&LocationUpdate{Latitude: 14.5, Longitude: 121}))
	assert.Error(t, ValidateLocationUpdate(&LocationUpdate{}))
	assert.Error(t, ValidateLocationUpdate(&LocationUpdate{Latitude: 100, Longitude: 1}))
	assert.Error(t, ValidateLocationUpdate(&LocationUpdate{Latitude: 1, Longitude: 1, Accuracy: -1}))
}

func TestIsValidPhoneNumber(t *testing.T) {
	assert.True(t, IsValidPhoneNumber("911"))
	assert.True(t, IsValidPhoneNumber("+63 917-555-0101"))
	assert.False(t, IsValidPhoneNumber(""))
	assert.False(t, IsValidPhoneNumber("call me"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "help", SanitizeInput("  <b>help</b> "))
}
