// Package apperror provides structured error handling for the receiving workflow.
// All business errors must use AppError for consistent reporting to the UI shell.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by the workflow error taxonomy
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Local validation errors (400) - never reach a collaborator
	CodeValidation = "VALIDATION_ERROR"

	// Collaborator round-trip failures (502) - always retryable
	CodeCollaborator = "COLLABORATOR_ERROR"

	// Terminal-state violations (422) - mutation attempted on a finished task
	CodeTerminalState = "TASK_TERMINAL"

	// Commit gate outcomes
	CodeCommitBlocked        = "COMMIT_BLOCKED"
	CodeConfirmationRequired = "COMMIT_CONFIRMATION_REQUIRED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the workflow.
// It implements the error interface and provides structured details for UI surfaces.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (line ids, missing fields, diffs)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a local validation error (400).
// Local errors are resolved at the channel that detected them and never
// trigger a collaborator call.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewCollaborator wraps a failed collaborator round trip (502).
// The collaborator's own message is preserved in the cause so it can be
// surfaced verbatim. Task state is left unchanged by the caller.
func NewCollaborator(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeCollaborator,
		Message:    fmt.Sprintf("%s failed", operation),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

// NewTerminalState creates an error for a mutation attempted against a
// COMMITTED/CANCELED/CLOSED task (422). Always local; no collaborator call
// should ever be made against a task known to be terminal.
func NewTerminalState(status string) *AppError {
	return &AppError{
		Code:       CodeTerminalState,
		Message:    fmt.Sprintf("task is %s and can no longer be modified", status),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"status": status},
	}
}

// NewCommitBlocked creates an error for a commit rejected by hard validation (422).
func NewCommitBlocked(message string) *AppError {
	return &AppError{
		Code:       CodeCommitBlocked,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewConfirmationRequired signals that commit is awaiting explicit operator
// confirmation of quantity mismatches (428). Not a failure: the UI presents
// the diff carried in details and retries with confirmation.
func NewConfirmationRequired(message string) *AppError {
	return &AppError{
		Code:       CodeConfirmationRequired,
		Message:    message,
		HTTPStatus: http.StatusPreconditionRequired,
	}
}

// NewInternal creates an internal error (hides details from the operator)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsCollaborator checks if error is CodeCollaborator
func IsCollaborator(err error) bool {
	return hasCode(err, CodeCollaborator)
}

// IsTerminalState checks if error is CodeTerminalState
func IsTerminalState(err error) bool {
	return hasCode(err, CodeTerminalState)
}

// IsCommitBlocked checks if error is CodeCommitBlocked
func IsCommitBlocked(err error) bool {
	return hasCode(err, CodeCommitBlocked)
}

// IsConfirmationRequired checks if error is CodeConfirmationRequired
func IsConfirmationRequired(err error) bool {
	return hasCode(err, CodeConfirmationRequired)
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}
