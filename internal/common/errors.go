package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Recovery for each of these is decided at the call site with errors.Is;
// none of them is allowed to abort a whole ingestion batch.
var (
	// ErrUpstreamUnavailable marks network or timeout failures talking to
	// the Sejm API. The record is skipped and the batch continues.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamNotFound marks a non-2xx response for a resource that may
	// legitimately not exist (e.g. no votings for a document). Callers
	// treat it as an empty result.
	ErrUpstreamNotFound = errors.New("upstream resource not found")

	// ErrUnreadableDocument marks a blob that cannot be opened as PDF or
	// DOCX at all. Extracted text is treated as absent.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrMalformedPayload marks unexpected JSON shapes from upstream.
	ErrMalformedPayload = errors.New("malformed upstream payload")

	// ErrNotFound is the storage-level absent-record sentinel.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput marks configuration or argument validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
