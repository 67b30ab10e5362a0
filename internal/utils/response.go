package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"resq/internal/gateway"
)

// Error codes carried in APIError.Code. The UI shell switches on these.
const (
	CodeBadRequest            = "BAD_REQUEST"
	CodeValidation            = "VALIDATION_ERROR"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL_ERROR"
	CodeBackendUnavailable    = "BACKEND_UNAVAILABLE"
	CodeCancelFailed          = "CANCEL_FAILED"
	CodeMediaTooLarge         = "MEDIA_TOO_LARGE"
	CodeMediaUploadFailed     = "MEDIA_UPLOAD_FAILED"
	CodeMediaListFailed       = "MEDIA_LIST_FAILED"
	CodeOfflineSOSUnavailable = "OFFLINE_SOS_UNAVAILABLE"
	CodeOfflineSOSFailed      = "OFFLINE_SOS_FAILED"
)

type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Count int `json:"count"`
}

func respond(c *gin.Context, statusCode int, response APIResponse) {
	response.RequestID = c.GetString(ContextKeyRequestID)
	response.Timestamp = time.Now()
	c.JSON(statusCode, response)
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *Meta) {
	respond(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data, Meta: meta})
}

// AcceptedResponse reports work that continues after the response, such as
// a running SOS countdown.
func AcceptedResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusAccepted, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	ErrorResponseWithDetails(c, statusCode, code, message, nil)
}

func ErrorResponseWithDetails(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	respond(c, statusCode, APIResponse{
		Status: StatusError,
		Error:  &APIError{Code: code, Message: message, Details: details},
	})
}

// BackendErrorResponse reports a failed backend call. An unreachable backend
// maps to 503 so the shell can offer the offline SOS; anything else is 502.
func BackendErrorResponse(c *gin.Context, code, message string, err error) {
	switch {
	case gateway.IsNetworkFailure(err):
		ErrorResponse(c, http.StatusServiceUnavailable, CodeBackendUnavailable, ErrBackendUnavailable)
	case errors.Is(err, gateway.ErrUnauthorized):
		UnauthorizedResponse(c)
	default:
		ErrorResponse(c, http.StatusBadGateway, code, message+": "+err.Error())
	}
}

func ValidationErrorResponse(c *gin.Context, errors map[string]string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, CodeValidation, ErrValidationFailed, errors)
}

func UnauthorizedResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusUnauthorized, CodeUnauthorized, ErrUnauthorized)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, CodeNotFound, resource+" not found")
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, CodeConflict, message)
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, CodeBadRequest, message)
}

// PrettyJSON renders v for terminal output.
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(b)
}
