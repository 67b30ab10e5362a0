package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"resq/internal/models"
)

var validate *validator.Validate

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{3,15}$`)

func init() {
	validate = validator.New()

	validate.RegisterValidation("phone_number", validatePhoneNumber)
	validate.RegisterValidation("case_status", validateCaseStatus)
	validate.RegisterStructValidation(validateSOSRequest, models.SOSRequest{})
}

var (
	ErrInvalidCoordinates = errors.New("invalid GPS coordinates")
	ErrInvalidPhoneNumber = errors.New("invalid phone number format")
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// ValidateStruct returns nil when s is valid.
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Message: err.Error()}}
	}
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: getErrorMessage(fe),
		})
	}
	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
	case "latitude":
		return "Latitude must be between -90 and 90"
	case "longitude":
		return "Longitude must be between -180 and 180"
	case "coordinates":
		return ErrInvalidCoordinates.Error()
	case "phone_number":
		return ErrInvalidPhoneNumber.Error()
	case "case_status":
		return "Unknown case status"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

func validatePhoneNumber(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	if phone == "" {
		return true
	}
	return phoneRegex.MatchString(strings.NewReplacer(" ", "", "-", "").Replace(phone))
}

func validateCaseStatus(fl validator.FieldLevel) bool {
	return models.NormalizeStatus(fl.Field().String()) != models.StatusUnknown
}

func IsValidPhoneNumber(phone string) bool {
	return phone != "" && validate.Var(phone, "phone_number") == nil
}

func SanitizeInput(input string) string {
	htmlRegex := regexp.MustCompile(`<[^>]*>`)
	cleaned := htmlRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
