// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrNoEditorTarget   = errors.New("no debuggable editor target found")
	ErrCallTimeout      = errors.New("remote call timed out")
	ErrConnClosed       = errors.New("debugger connection closed")
	ErrEmptyInput       = errors.New("invalid input: value cannot be empty")
	ErrNoCandidateMatch = errors.New("no candidate matched the requested name")
	ErrNotClickable     = errors.New("affordance found but could not be clicked")
	ErrNotWatching      = errors.New("no path is being watched")
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
	ErrClientNotFound   = errors.New("client not found")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// Error codes for client responses.
const (
	ErrCodeAutomationUnavailable = "AUTOMATION_UNAVAILABLE"
	ErrCodeCallTimeout           = "CALL_TIMEOUT"
	ErrCodeInvalidCommand        = "INVALID_COMMAND"
	ErrCodeInvalidPayload        = "INVALID_PAYLOAD"
	ErrCodeNoMatch               = "NO_MATCH"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// CDPError represents an error from a debugger protocol operation.
type CDPError struct {
	Op     string // Operation that failed (e.g. "Runtime.evaluate")
	Err    error  // Underlying error
	Remote string // Remote error message carried in the response, if any
}

func (e *CDPError) Error() string {
	if e.Remote != "" {
		return fmt.Sprintf("cdp %s: %s", e.Op, e.Remote)
	}
	return fmt.Sprintf("cdp %s: %v", e.Op, e.Err)
}

func (e *CDPError) Unwrap() error {
	return e.Err
}

// NewCDPError creates a new CDPError.
func NewCDPError(op string, err error) *CDPError {
	return &CDPError{Op: op, Err: err}
}

// NewRemoteError creates a CDPError carrying an in-band protocol error message.
func NewRemoteError(op, message string) *CDPError {
	return &CDPError{Op: op, Err: errors.New("remote error"), Remote: message}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
