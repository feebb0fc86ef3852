package paypal

import (
	"errors"
	"fmt"
)

// ErrAuth is wrapped by token fetch failures. The operation that needed the
// token fails; nothing retries automatically.
var ErrAuth = errors.New("paypal: authentication failed")

// APIError is a structured non-2xx response from the provider. Callers branch
// on StatusCode, never on message text.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
	RawBody    string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("paypal: %s (%d): %s", e.Name, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("paypal: request failed with status %d", e.StatusCode)
}

// IsServiceUnavailable reports a transient provider outage.
func (e *APIError) IsServiceUnavailable() bool {
	return e.StatusCode == 503
}
