package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers classify with errors.Is.
var (
	// ErrTransientUpstream covers rate limits, timeouts and upstream 5xx.
	// Work failing with it is safe to retry.
	ErrTransientUpstream = errors.New("transient upstream error")

	// ErrUpstreamData covers non-rate-limit 4xx responses and malformed
	// upstream payloads. Retrying will not help; the failure is scoped to
	// the single account or event being processed.
	ErrUpstreamData = errors.New("upstream data error")

	// ErrUnauthorized is returned when a presented credential does not match
	// the stored token of the owning account.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError describes a malformed inbound event. It is never retried
// and is surfaced to the caller as a structured 4xx.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
