package apperr

import (
	"errors"
	"fmt"
)

// ErrSessionMismatch is returned when the session id in a request payload
// does not match the authenticated cookie session. Treated as a security
// fault: rejected outright, never retried.
var ErrSessionMismatch = errors.New("session id does not match authenticated session")

// ValidationError describes a malformed request rejected at the action
// boundary. Violations are reported per field and never silently coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for a field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
