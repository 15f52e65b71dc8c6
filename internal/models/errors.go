package models

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError represents a validation error in models
type ValidationError struct {
	message string
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		message: fmt.Sprintf(format, args...),
	}
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return e.message
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidEventError rejects a malformed AgentEvent before detection starts.
// Callers at the HTTP boundary map it to a 400.
type InvalidEventError struct {
	Field  string
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid agent event: %s: %s", e.Field, e.Reason)
}

// IsInvalidEvent reports whether err is or wraps an InvalidEventError.
func IsInvalidEvent(err error) bool {
	var ie *InvalidEventError
	return errors.As(err, &ie)
}

// SpecialistQueryFailure records one specialist query that errored, timed out
// or panicked. It never aborts a batch; the executor logs it and drops the
// response.
type SpecialistQueryFailure struct {
	Agent    AgentType
	Question string
	Elapsed  time.Duration
	TimedOut bool
	Err      error
}

func (e *SpecialistQueryFailure) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("specialist %s timed out after %v", e.Agent, e.Elapsed)
	}
	return fmt.Sprintf("specialist %s failed: %v", e.Agent, e.Err)
}

func (e *SpecialistQueryFailure) Unwrap() error {
	return e.Err
}
