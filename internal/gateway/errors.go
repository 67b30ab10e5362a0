package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("gateway: not found")
	ErrUnauthorized = errors.New("gateway: unauthorized")
	ErrUnavailable  = errors.New("gateway: backend unavailable")
	ErrConflict     = errors.New("gateway: conflict")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status >= http.StatusInternalServerError:
		return ErrUnavailable
	}
	return nil
}

// IsNetworkFailure reports whether err means the backend could not be
// reached, as opposed to a rejected request.
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
