package whatsapp

import (
	"errors"
	"fmt"
)

// Graph API error code for sending outside the 24 hour customer service
// window without a template.
const codeReengagementRequired = 131047

var (
	// ErrWindowExpired indicates the recipient is outside the 24 hour service
	// window; only template messages can reach them.
	ErrWindowExpired = errors.New("outside 24h messaging window")
	// ErrMediaTooLarge indicates a media download exceeded the configured
	// byte ceiling.
	ErrMediaTooLarge = errors.New("media exceeds size limit")
)

// APIError is a non-2xx response from the graph API.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
	Details    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("whatsapp api error (%d, code %d): %s: %s", e.StatusCode, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("whatsapp api error (%d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// classifyError attaches the window sentinel so broadcast reports can call
// out recipients that need a template.
func classifyError(apiErr *APIError) error {
	if apiErr.Code == codeReengagementRequired {
		return fmt.Errorf("%w: %s", ErrWindowExpired, apiErr.Error())
	}
	return apiErr
}
