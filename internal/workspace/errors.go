package workspace

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the control plane.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("workspace API error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("workspace API error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is the control plane saying the requested
// resource does not exist.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotFound || apiErr.Code == "RESOURCE_DOES_NOT_EXIST"
}

// IsUnauthorized reports whether err means the access token was rejected.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}
