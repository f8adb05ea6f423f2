package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrCircularReference is returned when a move would make a document its own ancestor
	ErrCircularReference = errors.New("circular reference")

	// ErrInvalidBlockContent is returned when a block payload fails validation
	ErrInvalidBlockContent = errors.New("invalid block content")

	// ErrInvalidFormat is returned by rich text validators
	ErrInvalidFormat = errors.New("invalid format")

	// ErrRetryable marks transient lock/serialization failures
	ErrRetryable = errors.New("retryable")

	// ErrStorage marks underlying database failures
	ErrStorage = errors.New("storage error")
)

// ConflictError represents concurrent-mutation contention that outlived the retry budget
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, block)
	ResourceID   string // ID of the contended resource
	Err          error  // Last underlying error
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Unwrap exposes the last underlying error
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// StorageError wraps a database failure with the operation that hit it
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) StatusCode() int { return http.StatusInternalServerError }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// StatusCodeOf maps an error kind to an HTTP status code.
// Kinds not listed here are treated as internal errors.
func StatusCodeOf(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidBlockContent),
		errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrCircularReference):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
