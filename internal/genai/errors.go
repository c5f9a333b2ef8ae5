package genai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidCredentials indicates the API key was rejected. Never retried;
	// the operator has to fix the configured key.
	ErrInvalidCredentials = errors.New("model api credentials rejected")
	// ErrFileFailed indicates the provider marked an uploaded file as failed.
	ErrFileFailed = errors.New("provider file processing failed")
	// ErrEmptyResponse indicates the provider returned no usable candidate.
	ErrEmptyResponse = errors.New("empty response from model api")
)

// APIError is a non-2xx response from the model API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("model api error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("model api error (%d %s)", e.StatusCode, e.Status)
}

// IsTransient reports whether err is worth retrying: overload, rate limit,
// or an internal provider error.
func IsTransient(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// classifyError maps an error body onto the taxonomy. Invalid-key responses
// arrive as 400 INVALID_ARGUMENT with an "API key not valid" message, or as
// 401/403.
func classifyError(statusCode int, status, message string) error {
	apiErr := &APIError{StatusCode: statusCode, Status: status, Message: message}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Error())
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(message), "api key") {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Error())
		}
	}
	return apiErr
}
