package remote

import (
	"fmt"
	"net/http"

	"github.com/msomdec/taskmate/internal/domain"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Status)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

// Unwrap maps the response onto the domain sentinel it represents, so callers
// can use errors.Is without knowing about HTTP.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		if e.Code == "user_already_exists" {
			return domain.ErrDuplicateEmail
		}
		return domain.ErrConflict
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusBadRequest:
		if e.Code == "invalid_grant" {
			return domain.ErrUnauthorized
		}
		return domain.ErrInvalidInput
	case http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	}
	return nil
}
